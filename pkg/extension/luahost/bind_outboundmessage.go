package luahost

import (
	"fmt"

	"github.com/mailbridge/mailbridge/pkg/extension/event"
	lua "github.com/yuin/gopher-lua"
)

const outboundMessageName = "outbound_message"

func registerOutboundMessageType(ls *lua.LState) {
	mt := ls.NewTypeMetatable(outboundMessageName)
	ls.SetGlobal(outboundMessageName, mt)

	// Static attributes.
	ls.SetField(mt, "new", ls.NewFunction(newOutboundMessage))

	// Methods.
	ls.SetField(mt, "__index", ls.NewFunction(outboundMessageIndex))
	ls.SetField(mt, "__newindex", ls.NewFunction(outboundMessageNewIndex))
}

func newOutboundMessage(ls *lua.LState) int {
	val := &event.OutboundMessage{}
	ud := wrapOutboundMessage(ls, val)
	ls.Push(ud)

	return 1
}

func wrapOutboundMessage(ls *lua.LState, val *event.OutboundMessage) *lua.LUserData {
	ud := ls.NewUserData()
	ud.Value = val
	ls.SetMetatable(ud, ls.GetTypeMetatable(outboundMessageName))

	return ud
}

func unwrapOutboundMessage(lv lua.LValue) (*event.OutboundMessage, error) {
	if ud, ok := lv.(*lua.LUserData); ok {
		if v, ok := ud.Value.(*event.OutboundMessage); ok {
			return v, nil
		}
	}

	return nil, fmt.Errorf("expected OutboundMessage, got %q", lv.Type().String())
}

func checkOutboundMessage(ls *lua.LState, pos int) *event.OutboundMessage {
	ud := ls.CheckUserData(pos)
	if v, ok := ud.Value.(*event.OutboundMessage); ok {
		return v
	}
	ls.ArgError(pos, outboundMessageName+" expected")
	return nil
}

// outbound_message getter.
func outboundMessageIndex(ls *lua.LState) int {
	m := checkOutboundMessage(ls, 1)
	field := ls.CheckString(2)

	// Push the requested field's value onto the stack.
	switch field {
	case "from":
		ls.Push(wrapMailAddressOrNil(ls, m.From))
	case "to":
		ls.Push(wrapMailAddressList(ls, m.To))
	case "cc":
		ls.Push(wrapMailAddressList(ls, m.Cc))
	case "bcc":
		ls.Push(wrapMailAddressList(ls, m.Bcc))
	case "subject":
		ls.Push(lua.LString(m.Subject))
	case "body":
		ls.Push(lua.LString(m.Body))
	default:
		// Unknown field.
		ls.Push(lua.LNil)
	}

	return 1
}

// outbound_message setter.
func outboundMessageNewIndex(ls *lua.LState) int {
	m := checkOutboundMessage(ls, 1)
	index := ls.CheckString(2)

	switch index {
	case "from":
		m.From = checkMailAddress(ls, 3)
	case "to":
		m.To = checkMailAddressList(ls.CheckTable(3))
	case "cc":
		m.Cc = checkMailAddressList(ls.CheckTable(3))
	case "bcc":
		m.Bcc = checkMailAddressList(ls.CheckTable(3))
	case "subject":
		m.Subject = ls.CheckString(3)
	case "body":
		m.Body = ls.CheckString(3)
	default:
		ls.RaiseError("invalid index %q", index)
	}

	return 0
}
