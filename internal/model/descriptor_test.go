package model_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/amine-amaach/simulators/mixerUnitOPCUA/internal/model"
	"github.com/amine-amaach/simulators/mixerUnitOPCUA/internal/uatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescriptorDeterministic(t *testing.T) {
	svc := uatest.NewService(t, 48411)
	modified := time.Date(2023, 6, 1, 12, 0, 0, 0, time.UTC)

	var first, second bytes.Buffer
	require.NoError(t, model.NewMixer(svc.Server(), "Temperature").NodeSet(modified).Encode(&first))
	require.NoError(t, model.NewMixer(svc.Server(), "Temperature").NodeSet(modified).Encode(&second))

	// two startups with the same model definition serialize identically
	assert.Equal(t, first.String(), second.String())
}

func TestDescriptorContent(t *testing.T) {
	m := newTestMixer(t)
	var buf bytes.Buffer
	require.NoError(t, m.NodeSet(time.Time{}).Encode(&buf))
	doc := buf.String()

	assert.Contains(t, doc, model.NamespaceURI)
	assert.Contains(t, doc, "<UAObject")
	assert.Contains(t, doc, "<UAVariable")
	assert.Contains(t, doc, "StartMixer")
	assert.Contains(t, doc, "StopMixer")
	assert.Contains(t, doc, `DataType="Double"`)
	// zero lastModified omits the attribute
	assert.NotContains(t, doc, "LastModified")
}

func TestDescriptorTimestampIsNonStructural(t *testing.T) {
	m := newTestMixer(t)
	a := m.NodeSet(time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC))
	b := m.NodeSet(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	assert.NotEqual(t, a.LastModified, b.LastModified)
	assert.Equal(t, a.Nodes, b.Nodes)
	assert.Equal(t, a.NamespaceUris, b.NamespaceUris)
}

func TestWriteDescriptor(t *testing.T) {
	m := newTestMixer(t)
	path := filepath.Join(t.TempDir(), "server.xml")
	require.NoError(t, model.WriteDescriptor(path, m, time.Now().UTC()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<UANodeSet")
}
