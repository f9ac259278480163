package test

import (
	"context"

	gomail "github.com/wneessen/go-mail"

	"github.com/mailbridge/mailbridge/pkg/profile"
)

// SenderStub stubs mailbox.Sender for testing, recording every message
// it is asked to deliver.
type SenderStub struct {
	SendErr     error
	ValidateErr error
	Sent        []*gomail.Msg
	Validations int
}

// Send records the message, or fails with SendErr.
func (s *SenderStub) Send(_ context.Context, _ *profile.Profile, msg *gomail.Msg) error {
	if s.SendErr != nil {
		return s.SendErr
	}
	s.Sent = append(s.Sent, msg)
	return nil
}

// Validate counts the call, or fails with ValidateErr.
func (s *SenderStub) Validate(_ context.Context, _ *profile.Profile) error {
	if s.ValidateErr != nil {
		return s.ValidateErr
	}
	s.Validations++
	return nil
}
