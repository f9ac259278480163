package rest

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/mailbridge/mailbridge/pkg/mailbox"
	"github.com/mailbridge/mailbridge/pkg/profile"
	"github.com/mailbridge/mailbridge/pkg/rest/model"
	"github.com/mailbridge/mailbridge/pkg/server/web"
	"github.com/mailbridge/mailbridge/pkg/token"
)

// AuthLoginV1 validates the submitted connection profile against both
// upstream servers and mints a token pair for it.
func AuthLoginV1(w http.ResponseWriter, req *http.Request, ctx *web.Context) (err error) {
	p, err := decodeProfile(req)
	if err != nil {
		return err
	}
	if err := ctx.Manager.Login(req.Context(), p); err != nil {
		return err
	}
	pair, err := ctx.TokenCodec.Mint(*p)
	if err != nil {
		return fmt.Errorf("minting tokens: %w", err)
	}
	return web.RenderJSON(w, tokenPairToJSON(pair))
}

// AuthRefreshV1 exchanges a refresh token for a new token pair.
func AuthRefreshV1(w http.ResponseWriter, req *http.Request, ctx *web.Context) (err error) {
	var body model.JSONRefreshRequestV1
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return &mailbox.ValidationError{Reason: "malformed JSON body"}
	}
	if body.RefreshToken == "" {
		return &mailbox.ValidationError{Reason: "refresh_token required"}
	}
	pair, err := ctx.TokenCodec.Refresh(body.RefreshToken)
	if err != nil {
		return err
	}
	return web.RenderJSON(w, tokenPairToJSON(pair))
}

// AuthValidateV1 checks upstream connectivity for the submitted profile
// without minting tokens.
func AuthValidateV1(w http.ResponseWriter, req *http.Request, ctx *web.Context) (err error) {
	p, err := decodeProfile(req)
	if err != nil {
		return err
	}
	if err := ctx.Manager.Login(req.Context(), p); err != nil {
		return err
	}
	return web.RenderJSON(w, "OK")
}

// decodeProfile reads a connection profile from the request body,
// applying default ports and rejecting incomplete profiles.
func decodeProfile(req *http.Request) (*profile.Profile, error) {
	p := &profile.Profile{}
	if err := json.NewDecoder(req.Body).Decode(p); err != nil {
		return nil, &mailbox.ValidationError{Reason: "malformed JSON body"}
	}
	p.Normalize()
	if err := p.Validate(); err != nil {
		return nil, &mailbox.ValidationError{Reason: err.Error()}
	}
	return p, nil
}

func tokenPairToJSON(pair token.Pair) *model.JSONTokenPairV1 {
	return &model.JSONTokenPairV1{
		AccessToken:    pair.Access,
		AccessExpires:  pair.AccessExpires,
		RefreshToken:   pair.Refresh,
		RefreshExpires: pair.RefreshExpires,
	}
}
