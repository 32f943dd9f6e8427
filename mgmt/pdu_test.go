package mgmt

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/XC-/dbt/octets"
)

func TestNewSetPowerCmdEncodesHeaderAndParam(t *testing.T) {
	p := NewSetPowerCmd(3, true)
	assert.Equal(t, CmdSetPowered, p.Opcode())
	assert.EqualValues(t, 3, p.DevID())
	assert.EqualValues(t, 1, p.ParamLen())
	assert.Equal(t, []byte{1}, p.Params())
}

func TestParseRoundTripsBytes(t *testing.T) {
	p := NewStartDiscoveryCmd(1, 0x06)
	parsed, err := Parse(p.Bytes())
	assert.NoError(t, err)
	assert.Equal(t, p.Opcode(), parsed.Opcode())
	assert.Equal(t, p.DevID(), parsed.DevID())
	assert.Equal(t, p.Params(), parsed.Params())
}

func TestParseRejectsShortPDU(t *testing.T) {
	_, err := Parse([]byte{0x01, 0x00})
	assert.Error(t, err)
}

func TestParseRejectsParamLenMismatch(t *testing.T) {
	raw := NewSetPowerCmd(0, true).Bytes()
	raw = append(raw, 0xFF) // trailing byte not accounted for by param_len
	_, err := Parse(raw)
	assert.Error(t, err)
}

func buildCommandComplete(devID uint16, cmdOp Opcode, status Status, retParams []byte) []byte {
	b := octets.New(headerLen+3+len(retParams), headerLen+3+len(retParams))
	b.PutU16(0, uint16(EvtCommandComplete), octets.LittleEndian)
	b.PutU16(2, devID, octets.LittleEndian)
	b.PutU16(4, uint16(3+len(retParams)), octets.LittleEndian)
	b.PutU16(headerLen, uint16(cmdOp), octets.LittleEndian)
	b.PutU8(headerLen+2, byte(status))
	if len(retParams) > 0 {
		b.PutBytes(headerLen+3, retParams)
	}
	return b.Bytes()
}

func TestParseCommandCompleteReadsStatusAndCommandOpcode(t *testing.T) {
	raw := buildCommandComplete(0, CmdSetPowered, StatusSuccess, nil)
	p, err := Parse(raw)
	assert.NoError(t, err)
	cc, err := ParseCommandComplete(p)
	assert.NoError(t, err)
	assert.Equal(t, CmdSetPowered, cc.CommandOpcode())
	assert.True(t, cc.Status().OK())
}

func TestParseNewSettingsReadsBitmask(t *testing.T) {
	b := octets.New(headerLen+4, headerLen+4)
	b.PutU16(0, uint16(EvtNewSettings), octets.LittleEndian)
	b.PutU16(2, 0, octets.LittleEndian)
	b.PutU16(4, 4, octets.LittleEndian)
	b.PutU32(headerLen, uint32(SettingPowered|SettingLE), octets.LittleEndian)

	p, err := Parse(b.Bytes())
	assert.NoError(t, err)
	ns, err := ParseNewSettings(p)
	assert.NoError(t, err)
	assert.True(t, ns.Settings().Has(SettingPowered))
	assert.True(t, ns.Settings().Has(SettingLE))
	assert.False(t, ns.Settings().Has(SettingBondable))
}
