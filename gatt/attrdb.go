package gatt

import "github.com/XC-/dbt/uuid"

// DescType names which kind of descriptor a literal produces; CCCD and
// UserDescription get their reserved UUID and a default value, Arbitrary
// carries an explicit Type.
type DescType int

const (
	DescCCCD DescType = iota
	DescUserDescription
	DescArbitrary
)

// DescriptorLiteral, CharacteristicLiteral and ServiceLiteral are the tree
// literal inputs to BuildDatabase, mirroring the teacher's Service/
// Characteristic/Descriptor builder API (service.go, characteristic.go,
// descriptor.go) reworked as plain data: the database here is built once
// from a fixed declaration, not incrementally via AddCharacteristic calls.
type DescriptorLiteral struct {
	Kind           DescType
	Type           uuid.UUID // only used when Kind == DescArbitrary
	Value          []byte
	Capacity       int
	VariableLength bool
}

type CharacteristicLiteral struct {
	ValueType   uuid.UUID
	Properties  Properties
	Value       []byte
	Capacity    int
	VarLength   bool
	Descriptors []DescriptorLiteral
}

type ServiceLiteral struct {
	IsPrimary       bool
	Type            uuid.UUID
	Characteristics []CharacteristicLiteral
}

// BuildDatabase assigns handles to a tree of service literals starting at
// base (1, per spec.md §4.7: "ble handles start at 1") and returns the
// resulting AttributeDatabase. Handle assignment walks services in order;
// within each service, every characteristic gets a declaration handle then
// a value handle (consecutive), then its descriptors get one handle each;
// the service's end_handle is the last handle used inside it.
func BuildDatabase(literals []ServiceLiteral, base Handle, maxMTU int) *AttributeDatabase {
	db := &AttributeDatabase{MaxATTMTU: maxMTU}
	n := uint16(base)
	for _, sl := range literals {
		svc := &Service{IsPrimary: sl.IsPrimary, Type: sl.Type, StartHandle: Handle(n)}
		n++ // service declaration consumes one handle
		for _, cl := range sl.Characteristics {
			c := &Characteristic{
				DeclHandle:  Handle(n),
				ValueHandle: Handle(n + 1),
				Properties:  cl.Properties,
				ValueType:   cl.ValueType,
				Value:       cl.Value,
				Capacity:    cl.Capacity,
				VarLength:   cl.VarLength,
			}
			n += 2
			for _, dl := range cl.Descriptors {
				d := newDescriptor(dl, Handle(n))
				n++
				c.Descriptors = append(c.Descriptors, d)
			}
			c.EndHandle = Handle(n - 1)
			c.indexDescriptors()
			svc.Characteristics = append(svc.Characteristics, c)
		}
		svc.EndHandle = Handle(n - 1)
		db.Services = append(db.Services, svc)
	}
	return db
}

func newDescriptor(lit DescriptorLiteral, h Handle) *Descriptor {
	d := &Descriptor{Attribute{Handle: h, Capacity: lit.Capacity, VariableLength: lit.VariableLength}}
	switch lit.Kind {
	case DescCCCD:
		d.Type = TypeClientCharConfig
		d.Value = []byte{0x00, 0x00}
		d.Capacity = 2
	case DescUserDescription:
		d.Type = TypeCharUserDesc
		d.Value = lit.Value
		if d.Capacity == 0 {
			d.Capacity = len(lit.Value)
		}
	default:
		d.Type = lit.Type
		d.Value = lit.Value
		if d.Capacity == 0 {
			d.Capacity = len(lit.Value)
		}
	}
	return d
}
