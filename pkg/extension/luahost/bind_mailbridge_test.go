package luahost

import (
	"testing"

	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"
)

func TestMailbridgeAfterFuncs(t *testing.T) {
	script := `
		assert(mailbridge, "mailbridge should not be nil")
		assert(mailbridge.after, "mailbridge.after should not be nil")

		local fns = { "message_sent", "new_mail" }

		-- Verify functions start off nil.
		for i, name in ipairs(fns) do
			assert(mailbridge.after[name] == nil, "after." .. name .. " should be nil")
		end

		-- Test function to track func calls made.
		local calls = {}
		local testfn = function(name)
			calls[name] = true
		end

		-- Set after functions, verify not nil, and call them.
		for i, name in ipairs(fns) do
			mailbridge.after[name] = testfn
			assert(mailbridge.after[name], "after." .. name .. " should not be nil")
			mailbridge.after[name](name)
		end

		-- Verify functions were called.
		for i, name in ipairs(fns) do
			assert(calls[name], "after." .. name .. " should have been called")
		end
	`

	ls := lua.NewState()
	registerMailbridgeTypes(ls)
	require.NoError(t, ls.DoString(script))
}

func TestMailbridgeBeforeFuncs(t *testing.T) {
	script := `
		assert(mailbridge, "mailbridge should not be nil")
		assert(mailbridge.before, "mailbridge.before should not be nil")

		local fns = { "message_sent", "send_accepted" }

		-- Verify functions start off nil.
		for i, name in ipairs(fns) do
			assert(mailbridge.before[name] == nil, "before." .. name .. " should be nil")
		end

		-- Test function to track func calls made.
		local calls = {}
		local testfn = function(name)
			calls[name] = true
		end

		-- Set before functions, verify not nil, and call them.
		for i, name in ipairs(fns) do
			mailbridge.before[name] = testfn
			assert(mailbridge.before[name], "before." .. name .. " should not be nil")
			mailbridge.before[name](name)
		end

		-- Verify functions were called.
		for i, name in ipairs(fns) do
			assert(calls[name], "before." .. name .. " should have been called")
		end
	`

	ls := lua.NewState()
	registerMailbridgeTypes(ls)
	require.NoError(t, ls.DoString(script))
}

func TestMailbridgeBadIndexRaises(t *testing.T) {
	ls := lua.NewState()
	registerMailbridgeTypes(ls)

	err := ls.DoString(`mailbridge.after.bogus = function() end`)
	require.Error(t, err)

	err = ls.DoString(`mailbridge.before.bogus = function() end`)
	require.Error(t, err)
}
