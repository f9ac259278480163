package test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/jhillyerd/goldiff"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/suite"

	"github.com/mailbridge/mailbridge/pkg/config"
	"github.com/mailbridge/mailbridge/pkg/extension"
	"github.com/mailbridge/mailbridge/pkg/mailbox"
	"github.com/mailbridge/mailbridge/pkg/message"
	"github.com/mailbridge/mailbridge/pkg/msghub"
	"github.com/mailbridge/mailbridge/pkg/profile"
	"github.com/mailbridge/mailbridge/pkg/rest"
	"github.com/mailbridge/mailbridge/pkg/rest/client"
	"github.com/mailbridge/mailbridge/pkg/server/web"
	"github.com/mailbridge/mailbridge/pkg/token"
)

const (
	webAddr     = "127.0.0.1:9000"
	restBaseURL = "http://127.0.0.1:9000/"
)

// IntegrationSuite exercises the full request path: REST client to HTTP
// server to SessionManager, backed by an in-memory IMAP account.
type IntegrationSuite struct {
	suite.Suite
	server *MailServer
	sender *SenderStub
	stop   func()
}

func (s *IntegrationSuite) SetupSuite() {
	s.server = NewMailServer()
	s.sender = &SenderStub{}
	s.server.AddMessage("INBOX", nil,
		time.Date(2024, 5, 7, 8, 30, 0, 0, time.UTC), string(readTestData("basic.txt")))
	s.server.AddMessage("INBOX", nil,
		time.Date(2024, 5, 7, 10, 15, 0, 0, time.UTC), string(readTestData("fullname.txt")))
	s.server.AddMessage("INBOX", []string{`\Seen`},
		time.Date(2024, 5, 7, 11, 0, 0, 0, time.UTC), string(readTestData("encodedheader.txt")))
	s.server.AddMessage("Reports", nil,
		time.Date(2024, 5, 8, 6, 0, 0, 0, time.UTC), string(readTestData("attachment.txt")))
	s.server.Folder("Sent")

	stopServer, err := startServer(s.server, s.sender)
	s.Require().NoError(err)
	s.stop = stopServer
}

func (s *IntegrationSuite) TearDownSuite() {
	s.stop()
}

func TestIntegrationSuite(t *testing.T) {
	suite.Run(t, new(IntegrationSuite))
}

func (s *IntegrationSuite) TestBasic() {
	c := s.login()

	msg, err := c.GetMessage(context.Background(), "INBOX", "<basic.1@mailbridge.test>")
	s.Require().NoError(err)
	s.Require().NotNil(msg)

	// Compare to golden.
	got := formatMessage(msg)
	goldiff.File(s.T(), got, "testdata", "basic.golden")
}

func (s *IntegrationSuite) TestFullname() {
	c := s.login()

	msg, err := c.GetMessage(context.Background(), "INBOX", "<fullname.2@mailbridge.test>")
	s.Require().NoError(err)
	s.Require().NotNil(msg)

	// Compare to golden.
	got := formatMessage(msg)
	goldiff.File(s.T(), got, "testdata", "fullname.golden")
}

func (s *IntegrationSuite) TestEncodedHeader() {
	c := s.login()

	msg, err := c.GetMessage(context.Background(), "INBOX", "<encoded.3@mailbridge.test>")
	s.Require().NoError(err)
	s.Require().NotNil(msg)

	// Compare to golden.
	got := formatMessage(msg)
	goldiff.File(s.T(), got, "testdata", "encodedheader.golden")
}

func (s *IntegrationSuite) TestAttachment() {
	c := s.login()
	ctx := context.Background()

	msg, err := c.GetMessage(ctx, "Reports", "<report.4@mailbridge.test>")
	s.Require().NoError(err)
	s.Require().NotNil(msg)

	// Compare to golden.
	got := formatMessage(msg)
	goldiff.File(s.T(), got, "testdata", "attachment.golden")

	// Download and confirm content survived the round trip.
	buf, err := msg.DownloadAttachment(ctx, "totals.csv")
	s.Require().NoError(err)
	s.Equal("month,total\nApril,42\n", buf.String())
}

func (s *IntegrationSuite) TestFolders() {
	c := s.login()

	folders, err := c.Folders(context.Background())
	s.Require().NoError(err)
	s.Contains(folders, "INBOX")
	s.Contains(folders, "Reports")
}

func (s *IntegrationSuite) TestUnreadCount() {
	c := s.login()

	unread, err := c.UnreadCount(context.Background())
	s.Require().NoError(err)
	s.Equal(uint32(2), unread)
}

func (s *IntegrationSuite) TestSend() {
	c := s.login()

	out := &message.Outbound{
		To:      []string{"fred@fish.org"},
		Subject: "Port report",
		Body:    "All quiet this week.",
	}
	result, err := c.Send(context.Background(), out)
	s.Require().NoError(err)
	s.NotEmpty(result.MessageID)
	s.True(result.Delivered)
	s.True(result.Filed)
	s.Empty(result.Warnings)

	// Message was handed to the SMTP client.
	s.Require().Len(s.sender.Sent, 1)

	// And filed into the sent folder.
	sent := s.server.Folder("Sent")
	s.Require().Len(sent.Messages, 1)
	s.Contains(string(sent.Messages[0].Source), "Subject: Port report")
}

func (s *IntegrationSuite) login() *client.Client {
	c, err := client.New(restBaseURL)
	s.Require().NoError(err)
	_, err = c.Login(context.Background(), &profile.Profile{
		Address:  "ann@example.com",
		Secret:   "squeamish",
		IMAPHost: "imap.example.com",
		SMTPHost: "smtp.example.com",
	})
	s.Require().NoError(err)
	return c
}

func formatMessage(m *client.Message) []byte {
	b := &bytes.Buffer{}
	fmt.Fprintf(b, "Folder: %v\n", m.Folder)
	fmt.Fprintf(b, "ID: %v\n", m.ID)
	fmt.Fprintf(b, "From: %v\n", m.From)
	fmt.Fprintf(b, "To: %v\n", m.To)
	fmt.Fprintf(b, "Subject: %v\n", m.Subject)
	fmt.Fprintf(b, "Date: %v\n", m.Date)
	fmt.Fprintf(b, "Seen: %v\n", m.Seen)
	for _, a := range m.Attachments {
		fmt.Fprintf(b, "Attachment: %v (%v, %v bytes)\n", a.FileName, a.ContentType, a.Size)
	}
	fmt.Fprintf(b, "\nBODY TEXT:\n%v\n", m.Body.Text)
	fmt.Fprintf(b, "\nBODY HTML:\n%v\n", m.Body.HTML)
	return b.Bytes()
}

func startServer(server *MailServer, sender *SenderStub) (func(), error) {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: true})

	clearEnv()
	os.Setenv("MAILBRIDGE_WEB_ADDR", webAddr)
	os.Setenv("MAILBRIDGE_TOKEN_SIGNINGKEY", "integration-signing-key")
	os.Setenv("MAILBRIDGE_TOKEN_CREDENTIALKEY", "integration-key-0123456789abcdef")
	conf, err := config.Process()
	if err != nil {
		return nil, err
	}
	svcCtx, svcCancel := context.WithCancel(context.Background())

	extHost := extension.NewHost()
	msgHub := msghub.New(extHost)
	go msgHub.Start(svcCtx)

	mmanager := &mailbox.SessionManager{Dialer: server, Sender: sender, ExtHost: extHost}
	tokenCodec := token.NewCodec(conf.Token)

	// Start HTTP server.
	rest.SetupRoutes(web.Router.PathPrefix("/api/").Subrouter())
	webServer := web.NewServer(conf, make(chan bool), mmanager, msgHub, tokenCodec)
	go webServer.Start(svcCtx)

	// TODO Use a readyFunc to determine server readiness.
	time.Sleep(500 * time.Millisecond)

	return func() {
		// Shut everything down.
		svcCancel()
		webServer.Drain()
	}, nil
}

func readTestData(path ...string) []byte {
	// Prefix path with testdata.
	p := append([]string{"testdata"}, path...)
	f, err := os.Open(filepath.Join(p...))
	if err != nil {
		panic(err)
	}
	data, err := io.ReadAll(f)
	if err != nil {
		panic(err)
	}
	return data
}

// clearEnv clears environment variables, preserving any that are critical for this OS.
func clearEnv() {
	preserve := make(map[string]string)
	backup := func(k string) {
		preserve[k] = os.Getenv(k)
	}

	// Backup ciritcal env variables.
	if runtime.GOOS == "windows" {
		backup("SYSTEMROOT")
	}

	os.Clearenv()

	for k, v := range preserve {
		os.Setenv(k, v)
	}
}
