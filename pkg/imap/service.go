package imap

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	gomail "github.com/emersion/go-message/mail"

	emaildomain "schoolsync-backend/internal/email/domain"
)

const previewLength = 200

// Service searches an IMAP mailbox for school emails. It is the
// counterpart of the Gmail source for users on self-hosted or
// non-Google providers.
type Service struct {
	maxResults int
}

func NewService(maxResults int) *Service {
	return &Service{maxResults: maxResults}
}

// Search connects, searches INBOX for messages from the given senders
// within the lookback window and fetches their bodies.
func (s *Service) Search(ctx context.Context, host, username, password string, terms []string, lookbackMonths int) ([]*emaildomain.InboxMessage, error) {
	if !strings.Contains(host, ":") {
		host += ":993"
	}

	c, err := client.DialTLS(host, nil)
	if err != nil {
		return nil, fmt.Errorf("imap dial %s: %v", host, err)
	}
	defer c.Logout()

	if err := c.Login(username, password); err != nil {
		return nil, fmt.Errorf("imap login: %v", err)
	}

	if _, err := c.Select("INBOX", true); err != nil {
		return nil, fmt.Errorf("imap select INBOX: %v", err)
	}

	since := time.Now().AddDate(0, -lookbackMonths, 0)
	ids, err := c.Search(searchCriteria(terms, since))
	if err != nil {
		return nil, fmt.Errorf("imap search: %v", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	// Highest sequence numbers are the newest messages.
	if len(ids) > s.maxResults {
		ids = ids[len(ids)-s.maxResults:]
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(ids...)

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchEnvelope, section.FetchItem()}

	msgChan := make(chan *imap.Message, len(ids))
	done := make(chan error, 1)
	go func() {
		done <- c.Fetch(seqset, items, msgChan)
	}()

	var messages []*emaildomain.InboxMessage
	for msg := range msgChan {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		converted := convertMessage(msg, section)
		if converted != nil {
			messages = append(messages, converted)
		}
	}

	if err := <-done; err != nil {
		return nil, fmt.Errorf("imap fetch: %v", err)
	}
	return messages, nil
}

// searchCriteria builds SINCE plus an OR chain over From headers. Fields
// of a single SearchCriteria are AND-combined, so Since lives on the
// outermost node of the chain.
func searchCriteria(terms []string, since time.Time) *imap.SearchCriteria {
	var criteria *imap.SearchCriteria
	for _, term := range terms {
		c := imap.NewSearchCriteria()
		c.Header.Add("From", term)
		if criteria == nil {
			criteria = c
		} else {
			or := imap.NewSearchCriteria()
			or.Or = [][2]*imap.SearchCriteria{{criteria, c}}
			criteria = or
		}
	}
	if criteria == nil {
		criteria = imap.NewSearchCriteria()
	}
	criteria.Since = since
	return criteria
}

func convertMessage(msg *imap.Message, section *imap.BodySectionName) *emaildomain.InboxMessage {
	if msg.Envelope == nil {
		return nil
	}

	sender := ""
	if len(msg.Envelope.From) > 0 {
		from := msg.Envelope.From[0]
		if from.PersonalName != "" {
			sender = fmt.Sprintf("%s <%s>", from.PersonalName, from.Address())
		} else {
			sender = from.Address()
		}
	}

	body := extractBody(msg.GetBody(section))

	return &emaildomain.InboxMessage{
		RawID:      fmt.Sprintf("imap-%d", msg.Uid),
		Sender:     sender,
		Subject:    msg.Envelope.Subject,
		Preview:    truncate(body, previewLength),
		Body:       body,
		ReceivedAt: msg.Envelope.Date,
	}
}

// extractBody walks the MIME parts and returns the first text/plain one
func extractBody(r io.Reader) string {
	if r == nil {
		return ""
	}

	mr, err := gomail.CreateReader(r)
	if err != nil {
		log.Printf("[IMAP] [WARN] Failed to parse message body: %v", err)
		return ""
	}

	var fallback string
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Printf("[IMAP] [WARN] Failed to read message part: %v", err)
			break
		}

		header, ok := part.Header.(*gomail.InlineHeader)
		if !ok {
			continue
		}
		contentType, _, _ := header.ContentType()

		data, err := io.ReadAll(part.Body)
		if err != nil {
			continue
		}
		if contentType == "text/plain" {
			return string(data)
		}
		if fallback == "" {
			fallback = string(data)
		}
	}
	return fallback
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
