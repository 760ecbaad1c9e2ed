package gmail

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"net/mail"
	"regexp"
	"strings"
	"time"

	emaildomain "schoolsync-backend/internal/email/domain"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// TokenUpdateFunc is a callback function that handles token updates
type TokenUpdateFunc = emaildomain.TokenUpdateFunc

const previewLength = 200

// Service searches Gmail for school emails. It implements
// emaildomain.MailSource.
type Service struct {
	clientID     string
	clientSecret string
	maxResults   int64
}

type notifyTokenSource struct {
	src      oauth2.TokenSource
	current  *oauth2.Token
	callback TokenUpdateFunc
}

func (s *notifyTokenSource) Token() (*oauth2.Token, error) {
	t, err := s.src.Token()
	if err != nil {
		return nil, err
	}
	if s.callback != nil && s.current.AccessToken != t.AccessToken {
		s.current = t
		if err := s.callback(t); err != nil {
			log.Printf("[Gmail] Failed to persist refreshed token: %v", err)
		}
	}
	return t, nil
}

func NewService(clientID, clientSecret string, maxResults int64) *Service {
	return &Service{
		clientID:     clientID,
		clientSecret: clientSecret,
		maxResults:   maxResults,
	}
}

// getGmailService creates a Gmail client with the user's access token
func (s *Service) getGmailService(ctx context.Context, accessToken, refreshToken string, onTokenRefresh TokenUpdateFunc) (*gmail.Service, error) {
	token := &oauth2.Token{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
	}

	// Only force refresh if we have a refresh token
	if refreshToken != "" {
		token.Expiry = time.Now()
	}

	config := &oauth2.Config{
		ClientID:     s.clientID,
		ClientSecret: s.clientSecret,
		Endpoint:     google.Endpoint,
	}

	// Wrap token source to detect refreshes
	wrappedSource := &notifyTokenSource{
		src:      config.TokenSource(ctx, token),
		current:  token,
		callback: onTokenRefresh,
	}

	client := oauth2.NewClient(ctx, wrappedSource)

	srv, err := gmail.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("unable to create Gmail service: %v", err)
	}
	return srv, nil
}

// Search fetches messages from the configured senders inside the lookback
// window, newest first.
func (s *Service) Search(ctx context.Context, accessToken, refreshToken string, terms []string, lookbackMonths int, onTokenRefresh TokenUpdateFunc) ([]*emaildomain.InboxMessage, error) {
	srv, err := s.getGmailService(ctx, accessToken, refreshToken, onTokenRefresh)
	if err != nil {
		return nil, err
	}

	query := buildQuery(terms, time.Now().AddDate(0, -lookbackMonths, 0))
	log.Printf("[Gmail] Searching with query: %s", query)

	listResp, err := srv.Users.Messages.List("me").Q(query).MaxResults(s.maxResults).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("unable to list messages: %v", err)
	}

	messages := make([]*emaildomain.InboxMessage, 0, len(listResp.Messages))
	for _, ref := range listResp.Messages {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		fullMsg, err := srv.Users.Messages.Get("me", ref.Id).Format("full").Context(ctx).Do()
		if err != nil {
			log.Printf("[Gmail] [WARN] Failed to fetch message %s: %v", ref.Id, err)
			continue
		}
		messages = append(messages, convertMessage(fullMsg))
	}
	return messages, nil
}

// buildQuery composes the Gmail search expression: senders are
// OR-combined, the window is a single "after:" bound.
func buildQuery(terms []string, since time.Time) string {
	froms := make([]string, len(terms))
	for i, t := range terms {
		froms[i] = "from:" + t
	}
	return fmt.Sprintf("(%s) after:%s", strings.Join(froms, " OR "), since.Format("2006/01/02"))
}

func convertMessage(msg *gmail.Message) *emaildomain.InboxMessage {
	receivedAt := time.Now()
	if dateStr := getHeader(msg.Payload.Headers, "Date"); dateStr != "" {
		if parsed, err := mail.ParseDate(dateStr); err == nil {
			receivedAt = parsed
		}
	}

	body := getMessageBody(msg.Payload)
	preview := msg.Snippet
	if preview == "" {
		preview = truncate(body, previewLength)
	}

	return &emaildomain.InboxMessage{
		RawID:      msg.Id,
		Sender:     getHeader(msg.Payload.Headers, "From"),
		Subject:    getHeader(msg.Payload.Headers, "Subject"),
		Preview:    preview,
		Body:       body,
		ReceivedAt: receivedAt,
	}
}

func getHeader(headers []*gmail.MessagePartHeader, name string) string {
	for _, header := range headers {
		if strings.EqualFold(header.Name, name) {
			return header.Value
		}
	}
	return ""
}

// getMessageBody extracts a plain-text body, falling back to stripped HTML
func getMessageBody(payload *gmail.MessagePart) string {
	// If the payload itself is the body
	if payload.Body != nil && payload.Body.Data != "" {
		data, err := base64.URLEncoding.DecodeString(payload.Body.Data)
		if err == nil {
			if payload.MimeType == "text/html" {
				return stripHTML(string(data))
			}
			return string(data)
		}
	}

	var htmlBody string
	var plainBody string

	var findBody func(parts []*gmail.MessagePart)
	findBody = func(parts []*gmail.MessagePart) {
		for _, part := range parts {
			if part.MimeType == "text/plain" && plainBody == "" {
				if part.Body != nil && part.Body.Data != "" {
					data, err := base64.URLEncoding.DecodeString(part.Body.Data)
					if err == nil {
						plainBody = string(data)
					}
				}
			} else if part.MimeType == "text/html" && htmlBody == "" {
				if part.Body != nil && part.Body.Data != "" {
					data, err := base64.URLEncoding.DecodeString(part.Body.Data)
					if err == nil {
						htmlBody = string(data)
					}
				}
			}

			if len(part.Parts) > 0 {
				findBody(part.Parts)
			}
		}
	}

	findBody(payload.Parts)

	if plainBody != "" {
		return plainBody
	}
	return stripHTML(htmlBody)
}

var (
	tagRe        = regexp.MustCompile(`(?s)<(script|style)[^>]*>.*?</(script|style)>`)
	htmlTagRe    = regexp.MustCompile(`<[^>]+>`)
	whitespaceRe = regexp.MustCompile(`[ \t]+`)
)

func stripHTML(s string) string {
	s = tagRe.ReplaceAllString(s, " ")
	s = htmlTagRe.ReplaceAllString(s, " ")
	s = strings.NewReplacer("&nbsp;", " ", "&amp;", "&", "&lt;", "<", "&gt;", ">", "&#39;", "'", "&quot;", `"`).Replace(s)
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
