package luahost

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/mailbridge/mailbridge/pkg/config"
	"github.com/mailbridge/mailbridge/pkg/extension"
	"github.com/mailbridge/mailbridge/pkg/extension/event"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"
)

// Host of Lua extensions.  It bridges gateway events to the hook functions a
// script registers on the mailbridge global.
type Host struct {
	Functions []string // Hook functions detected in lua script.
	extHost   *extension.Host
	pool      *statePool
	logger    zerolog.Logger
}

// New constructs a new Lua Host, pre-compiling the source.  Returns a nil Host
// when no script is configured or the script file does not exist.
func New(conf config.Lua, extHost *extension.Host) (*Host, error) {
	scriptPath := conf.Path
	if scriptPath == "" {
		return nil, nil
	}

	logger := log.With().Str("module", "lua").Logger()
	startup := logger.With().Str("phase", "startup").Str("path", scriptPath).Logger()

	if fi, err := os.Stat(scriptPath); err != nil {
		startup.Info().Msg("Script file not found")
		return nil, nil
	} else if fi.IsDir() {
		return nil, fmt.Errorf("Lua script %v is a directory", scriptPath)
	}

	startup.Info().Msg("Loading script")
	file, err := os.Open(scriptPath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return NewFromReader(logger, extHost, bufio.NewReader(file), scriptPath)
}

// NewFromReader constructs a new Lua Host, loading Lua source from the provided
// reader.  The provided path is used in logging and error messages.
func NewFromReader(
	logger zerolog.Logger,
	extHost *extension.Host,
	r io.Reader,
	path string,
) (*Host, error) {
	// Parse and compile script.
	chunk, err := parse.Parse(r, path)
	if err != nil {
		return nil, err
	}
	proto, err := lua.Compile(chunk, path)
	if err != nil {
		return nil, err
	}

	pool := newStatePool(logger, proto)
	h := &Host{extHost: extHost, pool: pool, logger: logger}

	// Confirm LState creation works, then subscribe to the events the script
	// registered hooks for.
	ls, err := pool.getState()
	if err != nil {
		return nil, err
	}
	h.wireFunctions(ls)
	pool.putState(ls)

	return h, nil
}

// CreateChannel creates a channel and places it into the named global variable
// in newly created LStates.
func (h *Host) CreateChannel(name string) chan lua.LValue {
	return h.pool.createChannel(name)
}

// wireFunctions registers an event listener for each hook function the script
// defined on the mailbridge global.
func (h *Host) wireFunctions(ls *lua.LState) {
	mb, err := getMailbridge(ls)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to read mailbridge global")
		return
	}

	events := &h.extHost.Events
	if mb.After.MessageSent != nil {
		h.Functions = append(h.Functions, "mailbridge.after.message_sent")
		events.AfterMessageSent.AddListener("lua", h.handleAfterMessageSent)
	}
	if mb.After.NewMail != nil {
		h.Functions = append(h.Functions, "mailbridge.after.new_mail")
		events.AfterNewMail.AddListener("lua", h.handleAfterNewMail)
	}
	if mb.Before.MessageSent != nil {
		h.Functions = append(h.Functions, "mailbridge.before.message_sent")
		events.BeforeMessageSent.AddListener("lua", h.handleBeforeMessageSent)
	}
	if mb.Before.SendAccepted != nil {
		h.Functions = append(h.Functions, "mailbridge.before.send_accepted")
		events.BeforeSendAccepted.AddListener("lua", h.handleBeforeSendAccepted)
	}
}

func (h *Host) handleAfterMessageSent(meta event.OutboundMetadata) {
	ls, err := h.pool.getState()
	if err != nil {
		h.logger.Error().Err(err).Str("event", "after.message_sent").
			Msg("Failed to get Lua state")
		return
	}
	defer h.pool.putState(ls)

	// Hook functions live per-state, look it up again.
	mb, err := getMailbridge(ls)
	if err != nil || mb.After.MessageSent == nil {
		return
	}

	err = ls.CallByParam(
		lua.P{Fn: mb.After.MessageSent, NRet: 0, Protect: true},
		wrapOutboundMetadata(ls, &meta))
	if err != nil {
		h.logger.Error().Err(err).Str("event", "after.message_sent").Msg("Lua hook failed")
	}
}

func (h *Host) handleAfterNewMail(ev event.NewMail) {
	ls, err := h.pool.getState()
	if err != nil {
		h.logger.Error().Err(err).Str("event", "after.new_mail").
			Msg("Failed to get Lua state")
		return
	}
	defer h.pool.putState(ls)

	mb, err := getMailbridge(ls)
	if err != nil || mb.After.NewMail == nil {
		return
	}

	err = ls.CallByParam(
		lua.P{Fn: mb.After.NewMail, NRet: 0, Protect: true},
		wrapNewMail(ls, &ev))
	if err != nil {
		h.logger.Error().Err(err).Str("event", "after.new_mail").Msg("Lua hook failed")
	}
}

func (h *Host) handleBeforeMessageSent(ev event.OutboundMessage) *event.OutboundMessage {
	ls, err := h.pool.getState()
	if err != nil {
		h.logger.Error().Err(err).Str("event", "before.message_sent").
			Msg("Failed to get Lua state")
		return nil
	}
	defer h.pool.putState(ls)

	mb, err := getMailbridge(ls)
	if err != nil || mb.Before.MessageSent == nil {
		return nil
	}

	if err := ls.CallByParam(
		lua.P{Fn: mb.Before.MessageSent, NRet: 1, Protect: true},
		wrapOutboundMessage(ls, &ev),
	); err != nil {
		h.logger.Error().Err(err).Str("event", "before.message_sent").Msg("Lua hook failed")
		return nil
	}

	ret := ls.Get(-1)
	ls.Pop(1)
	if ret == lua.LNil {
		return nil
	}

	res, err := unwrapOutboundMessage(ret)
	if err != nil {
		h.logger.Error().Err(err).Str("event", "before.message_sent").
			Msg("Lua hook returned unexpected value")
		return nil
	}

	return res
}

func (h *Host) handleBeforeSendAccepted(ev event.OutboundMessage) *event.SendResponse {
	ls, err := h.pool.getState()
	if err != nil {
		h.logger.Error().Err(err).Str("event", "before.send_accepted").
			Msg("Failed to get Lua state")
		return nil
	}
	defer h.pool.putState(ls)

	mb, err := getMailbridge(ls)
	if err != nil || mb.Before.SendAccepted == nil {
		return nil
	}

	if err := ls.CallByParam(
		lua.P{Fn: mb.Before.SendAccepted, NRet: 1, Protect: true},
		wrapOutboundMessage(ls, &ev),
	); err != nil {
		h.logger.Error().Err(err).Str("event", "before.send_accepted").Msg("Lua hook failed")
		return nil
	}

	ret := ls.Get(-1)
	ls.Pop(1)
	if ret == lua.LNil {
		return nil
	}

	res, err := unwrapSMTPResponse(ret)
	if err != nil {
		h.logger.Error().Err(err).Str("event", "before.send_accepted").
			Msg("Lua hook returned unexpected value")
		return nil
	}

	return res
}
