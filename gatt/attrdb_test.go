package gatt

import (
	"testing"

	"github.com/XC-/dbt/uuid"
)

func sampleLiterals() []ServiceLiteral {
	return []ServiceLiteral{
		{
			IsPrimary: true,
			Type:      uuid.UUID16(0x1800),
			Characteristics: []CharacteristicLiteral{
				{
					ValueType:  uuid.UUID16(0x2A00),
					Properties: PropRead,
					Value:      []byte("S-10"),
				},
			},
		},
		{
			IsPrimary: true,
			Type:      uuid.MustParseUUID("0000DA7A-0000-1000-8000-00805F9B34FB"),
			Characteristics: []CharacteristicLiteral{
				{
					ValueType:  uuid.UUID16(0x2B00),
					Properties: PropWriteWithAck,
					Value:      []byte{0x00},
					Capacity:   1,
				},
				{
					ValueType:  uuid.UUID16(0x2B01),
					Properties: PropNotify | PropIndicate,
					Value:      []byte{0x00},
					Capacity:   20,
					VarLength:  true,
					Descriptors: []DescriptorLiteral{
						{Kind: DescCCCD},
						{Kind: DescUserDescription, Value: []byte("Response")},
					},
				},
			},
		},
	}
}

func TestBuildDatabaseAssignsIncreasingHandles(t *testing.T) {
	db := BuildDatabase(sampleLiterals(), 1, MaxATTMTU)
	if len(db.Services) != 2 {
		t.Fatalf("Services: got %d want 2", len(db.Services))
	}
	gap := db.Services[0]
	if gap.StartHandle != 1 {
		t.Errorf("gap.StartHandle: got %d want 1", gap.StartHandle)
	}
	data := db.Services[1]
	if data.StartHandle <= gap.EndHandle {
		t.Fatalf("data.StartHandle %d should exceed gap.EndHandle %d", data.StartHandle, gap.EndHandle)
	}

	prev := Handle(0)
	walk := func(h Handle) {
		if h <= prev {
			t.Errorf("handles not strictly increasing: %d after %d", h, prev)
		}
		prev = h
	}
	for _, s := range db.Services {
		walk(s.StartHandle)
		for _, c := range s.Characteristics {
			walk(c.DeclHandle)
			walk(c.ValueHandle)
			for _, d := range c.Descriptors {
				walk(d.Handle)
			}
			if c.ValueHandle >= c.EndHandle+1 && len(c.Descriptors) > 0 {
				t.Errorf("characteristic end handle inconsistent")
			}
		}
	}
}

func TestCharacteristicDescriptorIndexing(t *testing.T) {
	db := BuildDatabase(sampleLiterals(), 1, MaxATTMTU)
	resp := db.Services[1].Characteristics[1]
	if resp.CCCD() == nil {
		t.Fatalf("expected CCCD descriptor")
	}
	if resp.UserDescription() == nil {
		t.Fatalf("expected user description descriptor")
	}
	if notify, indicate := resp.CCCD().CCCDFlags(); notify || indicate {
		t.Errorf("expected CCCD to start disabled, got notify=%v indicate=%v", notify, indicate)
	}
}

func TestFindByServiceAndChar(t *testing.T) {
	db := BuildDatabase(sampleLiterals(), 1, MaxATTMTU)
	svc, char := db.FindByServiceAndChar(uuid.MustParseUUID("0000DA7A-0000-1000-8000-00805F9B34FB"), uuid.UUID16(0x2B01))
	if svc == nil || char == nil {
		t.Fatalf("expected to find service/characteristic")
	}
	if char.ValueHandle != db.Services[1].Characteristics[1].ValueHandle {
		t.Errorf("wrong characteristic found")
	}
}

func TestFindByValueHandle(t *testing.T) {
	db := BuildDatabase(sampleLiterals(), 1, MaxATTMTU)
	want := db.Services[1].Characteristics[0]
	svc, char := db.FindByValueHandle(want.ValueHandle)
	if svc != db.Services[1] || char != want {
		t.Fatalf("FindByValueHandle returned wrong characteristic")
	}
}

func TestResetCCCD(t *testing.T) {
	db := BuildDatabase(sampleLiterals(), 1, MaxATTMTU)
	svcUUID := uuid.MustParseUUID("0000DA7A-0000-1000-8000-00805F9B34FB")
	charUUID := uuid.UUID16(0x2B01)
	_, char := db.FindByServiceAndChar(svcUUID, charUUID)
	char.CCCD().Value = []byte{0x03, 0x00}
	if !db.ResetCCCD(svcUUID, charUUID) {
		t.Fatalf("ResetCCCD returned false")
	}
	if notify, indicate := char.CCCD().CCCDFlags(); notify || indicate {
		t.Errorf("expected CCCD reset to disabled, got notify=%v indicate=%v", notify, indicate)
	}
}
