package gatt

import (
	"time"

	"github.com/XC-/dbt/att"
)

// ServerListener observes every protocol-level event the DB handler
// raises, matching the listener callback names in spec.md §4.8.2:
// on_read_char/on_read_desc (return false to refuse), writeCharValue/
// writeDescValue (return false to refuse), clientCharConfigChanged,
// writeCharValueDone/writeDescValueDone, and mtuChanged. Every method has
// a default behavior via NopServerListener; real servers embed that and
// override what they need.
type ServerListener interface {
	OnMTUChanged(usedMTU int)
	OnReadChar(c *Characteristic) bool
	OnReadDesc(c *Characteristic, d *Descriptor) bool
	OnWriteChar(c *Characteristic, value []byte) bool
	OnWriteDesc(c *Characteristic, d *Descriptor, value []byte) bool
	OnClientCharConfigChanged(s *Service, c *Characteristic, d *Descriptor, notify, indicate bool)
	OnWriteCharValueDone(c *Characteristic)
	OnWriteDescValueDone(c *Characteristic, d *Descriptor)
}

// NopServerListener is the default no-op ServerListener; embed it and
// override only the callbacks a server cares about.
type NopServerListener struct{}

func (NopServerListener) OnMTUChanged(int)                                                   {}
func (NopServerListener) OnReadChar(*Characteristic) bool                                     { return true }
func (NopServerListener) OnReadDesc(*Characteristic, *Descriptor) bool                         { return true }
func (NopServerListener) OnWriteChar(*Characteristic, []byte) bool                             { return true }
func (NopServerListener) OnWriteDesc(*Characteristic, *Descriptor, []byte) bool                { return true }
func (NopServerListener) OnClientCharConfigChanged(*Service, *Characteristic, *Descriptor, bool, bool) {}
func (NopServerListener) OnWriteCharValueDone(*Characteristic)                                 {}
func (NopServerListener) OnWriteDescValueDone(*Characteristic, *Descriptor)                    {}

// ServerHandler is the strategy interface selected at connection
// construction: DB if the database has services, FWD if a forwarding
// target is configured, else NOP (spec.md §4.8).
type ServerHandler interface {
	HandleRequest(c *Conn, req []byte) []byte
}

// NewServerHandler selects a strategy per spec.md §4.8's construction rule.
func NewServerHandler(db *AttributeDatabase, listener ServerListener, upstream *Conn) ServerHandler {
	if db != nil && len(db.Services) > 0 {
		return &DBHandler{DB: db, Listener: listener}
	}
	if upstream != nil {
		return &FWDHandler{Upstream: upstream}
	}
	return NopHandler{}
}

// NopHandler silently succeeds every request without writing to the
// transport: used when no server is wanted (spec.md §4.8.1).
type NopHandler struct{}

func (NopHandler) HandleRequest(c *Conn, req []byte) []byte { return nil }

// DBHandler serves a local AttributeDatabase (spec.md §4.8.2).
type DBHandler struct {
	DB       *AttributeDatabase
	Listener ServerListener
}

func maxPayload(usedMTU int) int {
	p := usedMTU - 1
	if p > 255 {
		p = 255
	}
	return p
}

func (h *DBHandler) listener() ServerListener {
	if h.Listener != nil {
		return h.Listener
	}
	return NopServerListener{}
}

func (h *DBHandler) HandleRequest(c *Conn, req []byte) []byte {
	if len(req) == 0 {
		return nil
	}
	op := att.Opcode(req[0])
	switch op {
	case att.OpMTUReq:
		return h.handleMTU(c, req)
	case att.OpFindInfoReq:
		return h.handleFindInfo(c, req)
	case att.OpFindByTypeValueReq:
		return h.handleFindByTypeValue(c, req)
	case att.OpReadByTypeReq:
		return h.handleReadByType(c, req)
	case att.OpReadByGroupReq:
		return h.handleReadByGroupType(c, req)
	case att.OpReadReq:
		return h.handleRead(c, req, false)
	case att.OpReadBlobReq:
		return h.handleRead(c, req, true)
	case att.OpWriteReq:
		return h.handleWrite(c, req, true)
	case att.OpWriteCmd:
		h.handleWrite(c, req, false)
		return nil
	case att.OpPrepWriteReq:
		return h.handlePrepareWrite(c, req)
	case att.OpExecWriteReq:
		return h.handleExecuteWrite(c, req)
	case att.OpReadMultiReq, att.OpReadMultiVarReq, att.OpSignedWriteCmd:
		return att.NewErrorResp(op, 0, att.ErrUnsupportedRequest).Bytes()
	default:
		return att.NewErrorResp(op, 0, att.ErrForbiddenValue).Bytes()
	}
}

func (h *DBHandler) handleMTU(c *Conn, req []byte) []byte {
	r := att.ParseExchangeMTUReq(req)
	clientMTU := int(r.ClientMTU())
	serverMTU := h.DB.MaxATTMTU
	if serverMTU == 0 {
		serverMTU = MaxATTMTU
	}
	used := clientMTU
	if serverMTU < used {
		used = serverMTU
	}
	if used < MinATTMTU {
		used = MinATTMTU
	}
	c.SetUsedMTU(used)
	h.listener().OnMTUChanged(used)
	return att.NewExchangeMTUResp(uint16(serverMTU)).Bytes()
}

func (h *DBHandler) handleFindInfo(c *Conn, req []byte) []byte {
	r := att.ParseFindInfoReq(req)
	start, end := r.StartHandle(), r.EndHandle()
	var pairs []att.InfoPair
	uuidLen := -1
	for _, s := range h.DB.Services {
		for _, ch := range s.Characteristics {
			for _, d := range ch.Descriptors {
				if d.Handle < Handle(start) || d.Handle > Handle(end) {
					continue
				}
				if uuidLen == -1 {
					uuidLen = d.Type.Len()
				} else if uuidLen != d.Type.Len() {
					goto done
				}
				pairs = append(pairs, att.InfoPair{Handle: uint16(d.Handle), Type: d.Type})
				if len(pairs)*(2+uuidLen) >= maxPayload(c.UsedMTU()) {
					goto done
				}
			}
		}
	}
done:
	if len(pairs) == 0 {
		return att.NewErrorResp(att.OpFindInfoReq, start, att.ErrAttributeNotFound).Bytes()
	}
	resp, err := att.NewFindInfoResp(pairs)
	if err != nil {
		return att.NewErrorResp(att.OpFindInfoReq, start, att.ErrUnlikelyError).Bytes()
	}
	return resp.Bytes()
}

func (h *DBHandler) handleFindByTypeValue(c *Conn, req []byte) []byte {
	r := att.ParseFindByTypeValueReq(req)
	start, end := r.StartHandle(), r.EndHandle()
	attType := r.Type()
	if !attType.Equivalent(TypePrimaryService) && !attType.Equivalent(TypeSecondaryService) {
		return att.NewErrorResp(att.OpFindByTypeValueReq, start, att.ErrAttributeNotFound).Bytes()
	}
	wantPrimary := attType.Equivalent(TypePrimaryService)
	for _, s := range h.DB.Services {
		if s.IsPrimary != wantPrimary {
			continue
		}
		if s.StartHandle < Handle(start) || s.StartHandle > Handle(end) {
			continue
		}
		if len(r.Value()) > 0 {
			svcUUIDBytes := s.Type.LittleEndianBytes()
			if string(svcUUIDBytes) != string(r.Value()) {
				continue
			}
		}
		return att.NewFindByTypeValueResp([]att.HandleGroup{{Found: uint16(s.StartHandle), GroupEnd: uint16(s.EndHandle)}}).Bytes()
	}
	return att.NewErrorResp(att.OpFindByTypeValueReq, start, att.ErrAttributeNotFound).Bytes()
}

func (h *DBHandler) handleReadByType(c *Conn, req []byte) []byte {
	r := att.ParseReadByTypeReq(req)
	start, end, typ := r.StartHandle(), r.EndHandle(), r.Type()

	if typ.Equivalent(TypeIncludeDecl) {
		return att.NewErrorResp(att.OpReadByTypeReq, start, att.ErrAttributeNotFound).Bytes()
	}

	if typ.Equivalent(TypeCharacteristic) {
		var elems []att.TypeElement
		for _, s := range h.DB.Services {
			for _, ch := range s.Characteristics {
				if ch.DeclHandle < Handle(start) || ch.DeclHandle > Handle(end) {
					continue
				}
				value := make([]byte, 0, 3+ch.ValueType.Len())
				value = append(value, byte(ch.Properties))
				value = append(value, byte(ch.ValueHandle), byte(ch.ValueHandle>>8))
				value = append(value, ch.ValueType.LittleEndianBytes()...)
				elems = append(elems, att.TypeElement{Handle: uint16(ch.DeclHandle), Value: value})
				payload := maxPayload(c.UsedMTU())
				if len(elems)*(2+len(value)) >= payload {
					goto done
				}
			}
		}
	done:
		if len(elems) == 0 {
			return att.NewErrorResp(att.OpReadByTypeReq, start, att.ErrAttributeNotFound).Bytes()
		}
		resp, err := att.NewReadByTypeResp(elems)
		if err != nil {
			return att.NewErrorResp(att.OpReadByTypeReq, start, att.ErrUnlikelyError).Bytes()
		}
		return resp.Bytes()
	}

	for _, s := range h.DB.Services {
		for _, ch := range s.Characteristics {
			if ch.ValueHandle < Handle(start) || ch.ValueHandle > Handle(end) {
				continue
			}
			if !ch.ValueType.Equivalent(typ) {
				continue
			}
			if !h.listener().OnReadChar(ch) {
				return att.NewErrorResp(att.OpReadByTypeReq, uint16(ch.ValueHandle), att.ErrNoReadPerm).Bytes()
			}
			payload := maxPayload(c.UsedMTU())
			v := ch.Value
			if len(v) > payload {
				v = v[:payload]
			}
			resp, err := att.NewReadByTypeResp([]att.TypeElement{{Handle: uint16(ch.ValueHandle), Value: v}})
			if err != nil {
				return att.NewErrorResp(att.OpReadByTypeReq, start, att.ErrUnlikelyError).Bytes()
			}
			return resp.Bytes()
		}
	}
	return att.NewErrorResp(att.OpReadByTypeReq, start, att.ErrAttributeNotFound).Bytes()
}

func (h *DBHandler) handleReadByGroupType(c *Conn, req []byte) []byte {
	r := att.ParseReadByGroupTypeReq(req)
	start, end, typ := r.StartHandle(), r.EndHandle(), r.GroupType()
	if !typ.Equivalent(TypePrimaryService) && !typ.Equivalent(TypeSecondaryService) {
		return att.NewErrorResp(att.OpReadByGroupReq, start, att.ErrUnsupportedGroupType).Bytes()
	}
	wantPrimary := typ.Equivalent(TypePrimaryService)
	var elems []att.GroupElement
	for _, s := range h.DB.Services {
		if s.IsPrimary != wantPrimary {
			continue
		}
		if s.StartHandle < Handle(start) || s.StartHandle > Handle(end) {
			continue
		}
		if len(elems) > 0 && len(elems[0].Value) != s.Type.Len() {
			break
		}
		elems = append(elems, att.GroupElement{Start: uint16(s.StartHandle), End: uint16(s.EndHandle), Value: s.Type.LittleEndianBytes()})
		payload := maxPayload(c.UsedMTU())
		if len(elems)*(4+s.Type.Len()) >= payload {
			break
		}
	}
	if len(elems) == 0 {
		return att.NewErrorResp(att.OpReadByGroupReq, start, att.ErrAttributeNotFound).Bytes()
	}
	resp, err := att.NewReadByGroupTypeResp(elems)
	if err != nil {
		return att.NewErrorResp(att.OpReadByGroupReq, start, att.ErrUnlikelyError).Bytes()
	}
	return resp.Bytes()
}

func (h *DBHandler) handleRead(c *Conn, req []byte, blob bool) []byte {
	var handle Handle
	var offset int
	if blob {
		r := att.ParseReadBlobReq(req)
		handle, offset = Handle(r.Handle()), int(r.Offset())
	} else {
		r := att.ParseReadReq(req)
		handle = Handle(r.Handle())
	}

	svc, ch := h.DB.FindByValueHandle(handle)
	if ch == nil {
		return att.NewErrorResp(att.OpReadReq, uint16(handle), att.ErrInvalidHandle).Bytes()
	}
	var value []byte
	if ch.ValueHandle == handle {
		if !h.listener().OnReadChar(ch) {
			return att.NewErrorResp(att.OpReadReq, uint16(handle), att.ErrNoReadPerm).Bytes()
		}
		value = ch.Value
	} else {
		var d *Descriptor
		for _, dd := range ch.Descriptors {
			if dd.Handle == handle {
				d = dd
			}
		}
		if d == nil {
			return att.NewErrorResp(att.OpReadReq, uint16(handle), att.ErrInvalidHandle).Bytes()
		}
		if !h.listener().OnReadDesc(ch, d) {
			return att.NewErrorResp(att.OpReadReq, uint16(handle), att.ErrNoReadPerm).Bytes()
		}
		value = d.Value
	}
	_ = svc
	if offset > len(value) {
		return att.NewErrorResp(att.OpReadBlobReq, uint16(handle), att.ErrInvalidOffset).Bytes()
	}
	payload := maxPayload(c.UsedMTU())
	end := offset + payload
	if end > len(value) {
		end = len(value)
	}
	out := value[offset:end]
	if blob {
		return att.NewReadBlobResp(out).Bytes()
	}
	return att.NewReadResp(out).Bytes()
}

func (h *DBHandler) handleWrite(c *Conn, req []byte, withResponse bool) []byte {
	var handle Handle
	var value []byte
	if withResponse {
		r := att.ParseWriteReq(req)
		handle, value = Handle(r.Handle()), r.Value()
	} else {
		r := att.ParseWriteCmd(req)
		handle, value = Handle(r.Handle()), r.Value()
	}
	if errResp := h.applyWrite(c, handle, value, 0); errResp != nil {
		if withResponse {
			return errResp
		}
		return nil
	}
	if withResponse {
		return att.NewWriteResp().Bytes()
	}
	return nil
}

// applyWrite implements spec.md §4.8.2's applyWrite(handle, value, offset)
// algorithm; returns nil on success or an AttErrorRsp payload on failure.
func (h *DBHandler) applyWrite(c *Conn, handle Handle, value []byte, offset int) []byte {
	svc, ch := h.DB.FindByValueHandle(handle)
	if ch == nil {
		return att.NewErrorResp(att.OpWriteReq, uint16(handle), att.ErrInvalidHandle).Bytes()
	}

	if ch.ValueHandle == handle {
		if offset > len(ch.Value) {
			return att.NewErrorResp(att.OpWriteReq, uint16(handle), att.ErrInvalidOffset).Bytes()
		}
		newSize := offset + len(value)
		if newSize < len(ch.Value) {
			newSize = len(ch.Value)
		}
		if !ch.VarLength && newSize != len(ch.Value) {
			return att.NewErrorResp(att.OpWriteReq, uint16(handle), att.ErrInvalidAttributeLen).Bytes()
		}
		if ch.Capacity > 0 && newSize > ch.Capacity {
			return att.NewErrorResp(att.OpWriteReq, uint16(handle), att.ErrInvalidAttributeLen).Bytes()
		}
		if !h.listener().OnWriteChar(ch, value) {
			return att.NewErrorResp(att.OpWriteReq, uint16(handle), att.ErrNoWritePerm).Bytes()
		}
		ch.Value = spliceValue(ch.Value, offset, value, newSize)
		return nil
	}

	for _, d := range ch.Descriptors {
		if d.Handle != handle {
			continue
		}
		if d.IsUserDescription() {
			return att.NewErrorResp(att.OpWriteReq, uint16(handle), att.ErrNoWritePerm).Bytes()
		}
		if d.IsCCCD() {
			return h.applyCCCDWrite(svc, ch, d, value)
		}
		if offset > len(d.Value) {
			return att.NewErrorResp(att.OpWriteReq, uint16(handle), att.ErrInvalidOffset).Bytes()
		}
		newSize := offset + len(value)
		if newSize < len(d.Value) {
			newSize = len(d.Value)
		}
		if !d.VariableLength && newSize != len(d.Value) {
			return att.NewErrorResp(att.OpWriteReq, uint16(handle), att.ErrInvalidAttributeLen).Bytes()
		}
		if d.Capacity > 0 && newSize > d.Capacity {
			return att.NewErrorResp(att.OpWriteReq, uint16(handle), att.ErrInvalidAttributeLen).Bytes()
		}
		if !h.listener().OnWriteDesc(ch, d, value) {
			return att.NewErrorResp(att.OpWriteReq, uint16(handle), att.ErrNoWritePerm).Bytes()
		}
		d.Value = spliceValue(d.Value, offset, value, newSize)
		return nil
	}
	return att.NewErrorResp(att.OpWriteReq, uint16(handle), att.ErrInvalidHandle).Bytes()
}

func spliceValue(old []byte, offset int, frag []byte, newSize int) []byte {
	out := make([]byte, newSize)
	copy(out, old)
	copy(out[offset:], frag)
	return out
}

func (h *DBHandler) applyCCCDWrite(svc *Service, ch *Characteristic, d *Descriptor, value []byte) []byte {
	if len(value) != 2 {
		return att.NewErrorResp(att.OpWriteReq, uint16(d.Handle), att.ErrInvalidAttributeLen).Bytes()
	}
	notifyOld, indicateOld := d.CCCDFlags()
	notifyReq := value[0]&0x01 != 0
	indicateReq := value[0]&0x02 != 0
	notify := notifyReq && ch.Properties.Has(PropNotify)
	indicate := indicateReq && ch.Properties.Has(PropIndicate)
	if notify == notifyOld && indicate == indicateOld {
		return nil
	}
	b := byte(0)
	if notify {
		b |= 0x01
	}
	if indicate {
		b |= 0x02
	}
	d.Value = []byte{b, 0x00}
	h.listener().OnClientCharConfigChanged(svc, ch, d, notify, indicate)
	return nil
}

func (h *DBHandler) handlePrepareWrite(c *Conn, req []byte) []byte {
	r := att.ParsePrepareWriteReq(req)
	handle, offset, value := Handle(r.Handle()), int(r.Offset()), r.Value()
	c.recordPrepared(handle, offset, value)
	return att.NewPrepareWriteResp(uint16(handle), uint16(offset), value).Bytes()
}

func (h *DBHandler) handleExecuteWrite(c *Conn, req []byte) []byte {
	r := att.ParseExecuteWriteReq(req)
	if r.Flag() == att.ExecuteWriteCancel {
		c.clearPrepared()
		return att.NewExecuteWriteResp().Bytes()
	}
	for _, handle := range c.preparedHandles {
		for _, frag := range c.fragmentsFor(handle) {
			if errResp := h.applyWrite(c, frag.Handle, frag.Value, frag.Offset); errResp != nil {
				c.clearPrepared()
				return errResp
			}
		}
		if _, ch := h.DB.FindByValueHandle(handle); ch != nil {
			if ch.ValueHandle == handle {
				h.listener().OnWriteCharValueDone(ch)
			} else {
				for _, d := range ch.Descriptors {
					if d.Handle == handle {
						h.listener().OnWriteDescValueDone(ch, d)
					}
				}
			}
		}
	}
	c.clearPrepared()
	return att.NewExecuteWriteResp().Bytes()
}

// SendNotification sends an unacknowledged HANDLE_VALUE_NTF for handle.
// A zero-length value is a no-op, per spec.md §4.8.2.
func (h *DBHandler) SendNotification(c *Conn, handle Handle, value []byte) error {
	if len(value) == 0 {
		return nil
	}
	return c.Send(att.NewHandleValueNotification(uint16(handle), value).Bytes())
}

// SendIndication sends HANDLE_VALUE_IND and awaits HANDLE_VALUE_CFM within
// timeout, returning true iff confirmed.
func (h *DBHandler) SendIndication(c *Conn, handle Handle, value []byte, timeout time.Duration) bool {
	_, err := c.SendWithReply(att.NewHandleValueIndication(uint16(handle), value).Bytes(), timeout)
	return err == nil
}

