package luahost

import (
	"time"

	"github.com/mailbridge/mailbridge/pkg/extension/event"
	lua "github.com/yuin/gopher-lua"
)

const outboundMetadataName = "outbound_metadata"

func registerOutboundMetadataType(ls *lua.LState) {
	mt := ls.NewTypeMetatable(outboundMetadataName)
	ls.SetGlobal(outboundMetadataName, mt)

	// Static attributes.
	ls.SetField(mt, "new", ls.NewFunction(newOutboundMetadata))

	// Methods.
	ls.SetField(mt, "__index", ls.NewFunction(outboundMetadataIndex))
	ls.SetField(mt, "__newindex", ls.NewFunction(outboundMetadataNewIndex))
}

func newOutboundMetadata(ls *lua.LState) int {
	val := &event.OutboundMetadata{}
	ud := wrapOutboundMetadata(ls, val)
	ls.Push(ud)

	return 1
}

func wrapOutboundMetadata(ls *lua.LState, val *event.OutboundMetadata) *lua.LUserData {
	ud := ls.NewUserData()
	ud.Value = val
	ls.SetMetatable(ud, ls.GetTypeMetatable(outboundMetadataName))

	return ud
}

func checkOutboundMetadata(ls *lua.LState, pos int) *event.OutboundMetadata {
	ud := ls.CheckUserData(pos)
	if v, ok := ud.Value.(*event.OutboundMetadata); ok {
		return v
	}
	ls.ArgError(pos, outboundMetadataName+" expected")
	return nil
}

// outbound_metadata getter.
func outboundMetadataIndex(ls *lua.LState) int {
	m := checkOutboundMetadata(ls, 1)
	field := ls.CheckString(2)

	// Push the requested field's value onto the stack.
	switch field {
	case "mailbox":
		ls.Push(lua.LString(m.Mailbox))
	case "message_id":
		ls.Push(lua.LString(m.MessageID))
	case "from":
		ls.Push(wrapMailAddressOrNil(ls, m.From))
	case "to":
		ls.Push(wrapMailAddressList(ls, m.To))
	case "date":
		ls.Push(lua.LNumber(m.Date.Unix()))
	case "subject":
		ls.Push(lua.LString(m.Subject))
	case "filed":
		ls.Push(lua.LBool(m.Filed))
	default:
		// Unknown field.
		ls.Push(lua.LNil)
	}

	return 1
}

// outbound_metadata setter.
func outboundMetadataNewIndex(ls *lua.LState) int {
	m := checkOutboundMetadata(ls, 1)
	index := ls.CheckString(2)

	switch index {
	case "mailbox":
		m.Mailbox = ls.CheckString(3)
	case "message_id":
		m.MessageID = ls.CheckString(3)
	case "from":
		m.From = checkMailAddress(ls, 3)
	case "to":
		m.To = checkMailAddressList(ls.CheckTable(3))
	case "date":
		m.Date = time.Unix(ls.CheckInt64(3), 0)
	case "subject":
		m.Subject = ls.CheckString(3)
	case "filed":
		m.Filed = ls.CheckBool(3)
	default:
		ls.RaiseError("invalid index %q", index)
	}

	return 0
}
