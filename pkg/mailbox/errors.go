package mailbox

import "errors"

// ErrAuthFailed indicates the remote server rejected the account
// credentials.
var ErrAuthFailed = errors.New("credentials rejected")

// ErrFolderNotExist indicates the requested folder does not exist.
var ErrFolderNotExist = errors.New("folder does not exist")

// ErrNotExist indicates the requested message does not exist.
var ErrNotExist = errors.New("message does not exist")

// ErrAttachmentNotExist indicates the requested attachment does not
// exist on the message.
var ErrAttachmentNotExist = errors.New("attachment does not exist")

// ValidationError reports a request that fails local checks. It is
// detected before any remote traffic is attempted.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// SendRejectedError reports an outbound message denied by send policy.
type SendRejectedError struct {
	Code int
	Text string
}

func (e *SendRejectedError) Error() string { return e.Text }
