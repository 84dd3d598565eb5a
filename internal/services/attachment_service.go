// Package services – AttachmentService
//
// AttachmentService stores files uploaded into a chat. Bytes go to the
// configured object store under a per-user key; the database keeps the row
// that ties the object to its chat and owner.
package services

import (
	"bufio"
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/tbourn/llm-chat-backend/internal/domain"
	"github.com/tbourn/llm-chat-backend/internal/repo"
	"github.com/tbourn/llm-chat-backend/internal/storage"
	"github.com/tbourn/llm-chat-backend/internal/utils"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// AttachmentService manages chat attachments.
type AttachmentService struct {
	DB      *gorm.DB
	Storage storage.Storage

	// MaxBytes caps a single upload (0 = 20 MiB).
	MaxBytes int64
	// URLTTL is the lifetime of signed download URLs (0 = 15m).
	URLTTL time.Duration
}

// Upload is a file received from a client.
type Upload struct {
	FileName    string
	ContentType string
	Size        int64 // -1 when unknown
	Body        io.Reader
}

// Download is a resolved attachment location. Exactly one of URL and Body
// is set: backends without direct URLs stream the object instead.
type Download struct {
	Attachment *domain.ChatAttachment
	URL        string
	ExpiresAt  time.Time
	Body       io.ReadCloser
}

func (s *AttachmentService) maxBytes() int64 {
	if s.MaxBytes > 0 {
		return s.MaxBytes
	}
	return 20 << 20
}

func (s *AttachmentService) urlTTL() time.Duration {
	if s.URLTTL > 0 {
		return s.URLTTL
	}
	return 15 * time.Minute
}

// Create stores an upload in an owned chat. The file name is sanitised and
// the content type is sniffed from the first bytes when the client sent
// none (or a generic one).
func (s *AttachmentService) Create(ctx context.Context, userID, chatID string, up Upload) (*domain.ChatAttachment, error) {
	tr := otel.Tracer("services/AttachmentService")
	ctx, span := tr.Start(ctx, "Create", trace.WithAttributes(
		attribute.String("chat.id", chatID),
		attribute.String("user.id", userID),
		attribute.Int64("size", up.Size),
	))
	defer span.End()

	limit := s.maxBytes()
	if up.Size > limit {
		return nil, ErrFileTooLarge
	}
	if up.Size == 0 {
		return nil, ErrEmptyFile
	}
	if _, err := ownedChat(ctx, s.DB, chatID, userID); err != nil {
		return nil, err
	}

	br := bufio.NewReaderSize(up.Body, 512)
	head, err := br.Peek(512)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, err
	}
	if len(head) == 0 {
		return nil, ErrEmptyFile
	}

	name := utils.SanitizeFilename(up.FileName)
	ctype := contentTypeOf(name, up.ContentType, head)

	// Count what actually arrives; a lying Size must not bypass the cap.
	body := &countingReader{r: io.LimitReader(br, limit+1)}
	key := storage.NewKey(userID, name, ctype)
	if err := s.Storage.Put(ctx, key, body, up.Size, ctype); err != nil {
		return nil, err
	}
	if body.n > limit {
		s.dropObject(ctx, key)
		return nil, ErrFileTooLarge
	}

	a := &domain.ChatAttachment{
		ChatID:     chatID,
		UserID:     userID,
		StorageKey: key,
		FileName:   name,
		MimeType:   ctype,
		Size:       body.n,
	}
	if err := repo.CreateAttachment(ctx, s.DB, a); err != nil {
		s.dropObject(ctx, key)
		return nil, err
	}
	span.SetAttributes(attribute.String("attachment.id", a.ID), attribute.String("mime", ctype))
	return a, nil
}

// List returns the attachments of an owned chat, newest first.
func (s *AttachmentService) List(ctx context.Context, userID, chatID string) ([]domain.ChatAttachment, error) {
	if _, err := ownedChat(ctx, s.DB, chatID, userID); err != nil {
		return nil, err
	}
	return repo.ListAttachments(ctx, s.DB, chatID, userID)
}

// Get returns a signed URL for an owned attachment, or an open stream when
// the backend cannot sign URLs. The caller closes Body.
func (s *AttachmentService) Get(ctx context.Context, userID, id string) (*Download, error) {
	a, err := repo.GetAttachment(ctx, s.DB, id, userID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrAttachmentNotFound
		}
		return nil, err
	}
	ttl := s.urlTTL()
	u, err := s.Storage.URL(ctx, a.StorageKey, ttl)
	if err == nil {
		return &Download{Attachment: a, URL: u, ExpiresAt: time.Now().UTC().Add(ttl)}, nil
	}
	if !errors.Is(err, storage.ErrNoDirectURL) {
		return nil, err
	}
	return s.Open(ctx, userID, id)
}

// Open streams an owned attachment's bytes.
func (s *AttachmentService) Open(ctx context.Context, userID, id string) (*Download, error) {
	a, err := repo.GetAttachment(ctx, s.DB, id, userID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrAttachmentNotFound
		}
		return nil, err
	}
	rc, err := s.Storage.Get(ctx, a.StorageKey)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrAttachmentNotFound
		}
		return nil, err
	}
	return &Download{Attachment: a, Body: rc}, nil
}

// Delete removes an owned attachment row and then its object.
func (s *AttachmentService) Delete(ctx context.Context, userID, id string) error {
	a, err := repo.GetAttachment(ctx, s.DB, id, userID)
	if err != nil {
		if isNotFound(err) {
			return ErrAttachmentNotFound
		}
		return err
	}
	if err := repo.DeleteAttachment(ctx, s.DB, id, userID); err != nil {
		if isNotFound(err) {
			return ErrAttachmentNotFound
		}
		return err
	}
	deleteObjects(ctx, s.Storage, []string{a.StorageKey})
	return nil
}

func (s *AttachmentService) dropObject(ctx context.Context, key string) {
	if err := s.Storage.Delete(ctx, key); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("storage_key", key).Msg("orphan attachment object")
	}
}

// contentTypeOf prefers a specific client type, then the extension, then
// content sniffing.
func contentTypeOf(name, declared string, head []byte) string {
	if mt, _, err := mime.ParseMediaType(declared); err == nil && mt != "application/octet-stream" {
		return mt
	}
	if byExt := mime.TypeByExtension(strings.ToLower(path.Ext(name))); byExt != "" {
		if mt, _, err := mime.ParseMediaType(byExt); err == nil {
			return mt
		}
	}
	mt, _, _ := mime.ParseMediaType(http.DetectContentType(head))
	return mt
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
