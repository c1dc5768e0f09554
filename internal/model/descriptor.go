package model

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
)

// The descriptor file is an OPC UA NodeSet2 XML document describing the
// mixer namespace, regenerated on every startup for external modeling
// tooling. Serialization is deterministic for a given model definition;
// LastModified is the only non-structural field.

const nodeSetXMLNS = "http://opcfoundation.org/UA/2011/03/UANodeSet.xsd"

// NodeSet is the serializable form of the mixer namespace.
type NodeSet struct {
	XMLName       xml.Name    `xml:"UANodeSet"`
	XMLNS         string      `xml:"xmlns,attr"`
	LastModified  string      `xml:"LastModified,attr,omitempty"`
	NamespaceUris []string    `xml:"NamespaceUris>Uri"`
	Aliases       []nodeAlias `xml:"Aliases>Alias"`
	Nodes         []nodeSetNode
}

type nodeSetNode struct {
	XMLName     xml.Name
	NodeID      string             `xml:"NodeId,attr"`
	BrowseName  string             `xml:"BrowseName,attr"`
	DataType    string             `xml:"DataType,attr,omitempty"`
	AccessLevel string             `xml:"AccessLevel,attr,omitempty"`
	DisplayName string             `xml:"DisplayName"`
	Description string             `xml:"Description,omitempty"`
	References  []nodeSetReference `xml:"References>Reference"`
}

type nodeSetReference struct {
	ReferenceType string `xml:"ReferenceType,attr"`
	IsForward     string `xml:"IsForward,attr,omitempty"`
	Target        string `xml:",chardata"`
}

type nodeAlias struct {
	Alias  string `xml:"Alias,attr"`
	NodeID string `xml:",chardata"`
}

// NodeSet returns the descriptor document for the mixer namespace.
// lastModified may be zero to omit the attribute.
func (m *Mixer) NodeSet(lastModified time.Time) NodeSet {
	modified := ""
	if !lastModified.IsZero() {
		modified = lastModified.UTC().Format(time.RFC3339)
	}
	mixerID := fmt.Sprint(m.object.NodeID())
	return NodeSet{
		XMLNS:         nodeSetXMLNS,
		LastModified:  modified,
		NamespaceUris: []string{NamespaceURI},
		Aliases: []nodeAlias{
			{Alias: "Organizes", NodeID: "i=35"},
			{Alias: "HasComponent", NodeID: "i=47"},
			{Alias: "Double", NodeID: "i=11"},
		},
		Nodes: []nodeSetNode{
			{
				XMLName:     xml.Name{Local: "UAObject"},
				NodeID:      mixerID,
				BrowseName:  fmt.Sprintf("%d:%s", m.nsi, MixerID),
				DisplayName: m.object.DisplayName().Text,
				Description: m.object.Description().Text,
				References: []nodeSetReference{
					{ReferenceType: "Organizes", IsForward: "false", Target: "i=85"},
				},
			},
			{
				XMLName:     xml.Name{Local: "UAVariable"},
				NodeID:      fmt.Sprint(m.sensor.NodeID()),
				BrowseName:  fmt.Sprintf("%d:%s", m.nsi, m.sensorName),
				DataType:    "Double",
				AccessLevel: "1",
				DisplayName: m.sensor.DisplayName().Text,
				Description: m.sensor.Description().Text,
				References: []nodeSetReference{
					{ReferenceType: "HasComponent", IsForward: "false", Target: mixerID},
				},
			},
			{
				XMLName:     xml.Name{Local: "UAMethod"},
				NodeID:      fmt.Sprint(m.start.NodeID()),
				BrowseName:  fmt.Sprintf("%d:%s", m.nsi, m.start.BrowseName().Name),
				DisplayName: m.start.DisplayName().Text,
				Description: m.start.Description().Text,
				References: []nodeSetReference{
					{ReferenceType: "HasComponent", IsForward: "false", Target: mixerID},
				},
			},
			{
				XMLName:     xml.Name{Local: "UAMethod"},
				NodeID:      fmt.Sprint(m.stop.NodeID()),
				BrowseName:  fmt.Sprintf("%d:%s", m.nsi, m.stop.BrowseName().Name),
				DisplayName: m.stop.DisplayName().Text,
				Description: m.stop.Description().Text,
				References: []nodeSetReference{
					{ReferenceType: "HasComponent", IsForward: "false", Target: mixerID},
				},
			},
		},
	}
}

// Encode writes the document as indented XML.
func (ns NodeSet) Encode(w io.Writer) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(ns); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// WriteDescriptor serializes the mixer namespace to path.
func WriteDescriptor(path string, m *Mixer, lastModified time.Time) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "creating descriptor file")
	}
	if err := m.NodeSet(lastModified).Encode(f); err != nil {
		f.Close()
		return errors.Wrap(err, "encoding descriptor")
	}
	return errors.Wrap(f.Close(), "closing descriptor file")
}
