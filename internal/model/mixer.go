package model

import (
	"fmt"
	"time"

	"github.com/awcullen/opcua/server"
	"github.com/awcullen/opcua/ua"
)

// NamespaceURI identifies the mixer namespace.
const NamespaceURI = "http://github.com/amine-amaach/simulators/mixerUnitOPCUA"

// String identifiers of the mixer nodes within the namespace.
const (
	MixerID       = "Mixer"
	StartMethodID = "Mixer.StartMixer"
	StopMethodID  = "Mixer.StopMixer"
)

// SensorID returns the string identifier of the sensor variable.
func SensorID(sensorName string) string {
	return fmt.Sprintf("%s.%s", MixerID, sensorName)
}

// methodRolePermissions grants Call on the mixer methods. The server's
// default role permissions give anonymous and authenticated sessions
// Browse/Read only, which would reject every method call with
// BadUserAccessDenied before a handler runs.
var methodRolePermissions = []ua.RolePermissionType{
	{RoleID: ua.ObjectIDWellKnownRoleAnonymous, Permissions: ua.PermissionTypeBrowse | ua.PermissionTypeRead | ua.PermissionTypeCall},
	{RoleID: ua.ObjectIDWellKnownRoleAuthenticatedUser, Permissions: ua.PermissionTypeBrowse | ua.PermissionTypeRead | ua.PermissionTypeCall},
	{RoleID: ua.ObjectIDWellKnownRoleOperator, Permissions: ua.PermissionTypeBrowse | ua.PermissionTypeRead | ua.PermissionTypeCall},
}

// Mixer is the information model of one mixer unit: an object node owning a
// floating-point sensor variable and the StartMixer/StopMixer method nodes.
// One instance exists per server, created at startup.
type Mixer struct {
	object *server.ObjectNode
	sensor *server.VariableNode
	start  *server.MethodNode
	stop   *server.MethodNode

	nsi        uint16
	sensorName string
}

// NewMixer adds the mixer namespace to the server and builds the mixer
// subtree. The nodes still have to be registered with the namespace
// manager to become browsable.
func NewMixer(srv *server.Server, sensorName string) *Mixer {
	nsi := srv.NamespaceManager().Add(NamespaceURI)
	object := server.NewObjectNode(
		srv,
		ua.NodeIDString{NamespaceIndex: nsi, ID: MixerID},
		ua.QualifiedName{NamespaceIndex: nsi, Name: MixerID},
		ua.LocalizedText{Text: "Mixer"},
		ua.LocalizedText{Text: "A simulated mixer unit."},
		nil,
		[]ua.Reference{
			{
				ReferenceTypeID: ua.ReferenceTypeIDOrganizes,
				IsInverse:       true,
				TargetID:        ua.ExpandedNodeID{NodeID: ua.ObjectIDObjectsFolder},
			},
		},
		0,
	)
	sensor := server.NewVariableNode(
		srv,
		ua.NodeIDString{NamespaceIndex: nsi, ID: SensorID(sensorName)},
		ua.QualifiedName{NamespaceIndex: nsi, Name: sensorName},
		ua.LocalizedText{Text: sensorName},
		ua.LocalizedText{Text: fmt.Sprint(sensorName, " sensor of the mixer unit.")},
		nil,
		[]ua.Reference{
			{
				ReferenceTypeID: ua.ReferenceTypeIDHasComponent,
				IsInverse:       true,
				TargetID:        ua.ExpandedNodeID{NodeID: ua.NodeIDString{NamespaceIndex: nsi, ID: MixerID}},
			},
		},
		ua.DataValue{},
		ua.DataTypeIDDouble,
		ua.ValueRankScalar,
		[]uint32{},
		ua.AccessLevelsCurrentRead,
		250.0,
		false,
		nil,
	)
	start := newMethodNode(srv, nsi, StartMethodID, "StartMixer", "Starts the mixer.")
	stop := newMethodNode(srv, nsi, StopMethodID, "StopMixer", "Stops the mixer.")
	return &Mixer{
		object:     object,
		sensor:     sensor,
		start:      start,
		stop:       stop,
		nsi:        nsi,
		sensorName: sensorName,
	}
}

func newMethodNode(srv *server.Server, nsi uint16, id, name, description string) *server.MethodNode {
	return server.NewMethodNode(
		srv,
		ua.NodeIDString{NamespaceIndex: nsi, ID: id},
		ua.QualifiedName{NamespaceIndex: nsi, Name: name},
		ua.LocalizedText{Text: name},
		ua.LocalizedText{Text: description},
		methodRolePermissions,
		[]ua.Reference{
			{
				ReferenceTypeID: ua.ReferenceTypeIDHasComponent,
				IsInverse:       true,
				TargetID:        ua.ExpandedNodeID{NodeID: ua.NodeIDString{NamespaceIndex: nsi, ID: MixerID}},
			},
		},
		true,
	)
}

// Nodes returns the mixer subtree in registration order.
func (m *Mixer) Nodes() []server.Node {
	return []server.Node{m.object, m.sensor, m.start, m.stop}
}

func (m *Mixer) Object() *server.ObjectNode { return m.object }

func (m *Mixer) Sensor() *server.VariableNode { return m.sensor }

func (m *Mixer) StartMethod() *server.MethodNode { return m.start }

func (m *Mixer) StopMethod() *server.MethodNode { return m.stop }

// SetSensorValue writes a new sensor reading. The server's monitored-item
// machinery pushes the change to every subscriber in write order. The
// signature matches simulation.Sink.
func (m *Mixer) SetSensorValue(value float64, timestamp time.Time) {
	m.sensor.SetValue(ua.NewDataValue(value, 0, timestamp, 0, timestamp, 0))
}

// ReadSensor returns the sensor's current value. It has no side effect; a
// never-written sensor reads as zero.
func (m *Mixer) ReadSensor() float64 {
	if v, ok := m.sensor.Value().Value.(float64); ok {
		return v
	}
	return 0
}
