package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/memoria/core/internal/domain/entities"
	"github.com/memoria/core/internal/infrastructure/logger"
	"github.com/memoria/core/internal/ports"
)

// ResourceService implements create/read/update/delete for the simple resources.
// P is the pointer type of T so the service can stamp ids and timestamps.
type ResourceService[T any, P interface {
	*T
	entities.Record
}] struct {
	name    string
	repo    ports.Repository[T]
	logger  *logger.Logger
	prepare func(P) error
	now     func() int64
}

// NewResourceService creates a CRUD service named after the resource it serves.
// prepare, when non-nil, normalizes and validates an item before every write.
func NewResourceService[T any, P interface {
	*T
	entities.Record
}](name string, repo ports.Repository[T], appLogger *logger.Logger, prepare func(P) error) *ResourceService[T, P] {
	return &ResourceService[T, P]{
		name:    name,
		repo:    repo,
		logger:  appLogger.WithComponent(name),
		prepare: prepare,
		now:     entities.NowMillis,
	}
}

// Create stores a new item, generating an id when the client did not send one
func (s *ResourceService[T, P]) Create(ctx context.Context, item *T) (*T, error) {
	p := P(item)
	if err := s.runPrepare(p); err != nil {
		return nil, err
	}

	id := p.RecordID()
	if id == "" {
		id = uuid.NewString()
	}
	now := s.now()
	p.Stamp(id, now, now)

	if err := s.repo.Create(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", s.name, err)
	}

	s.logger.Infow("Resource created", "id", id)

	return item, nil
}

// Get returns the item with id
func (s *ResourceService[T, P]) Get(ctx context.Context, id string) (*T, error) {
	return s.repo.GetByID(ctx, id)
}

// Update overwrites the item with id, keeping its creation time
func (s *ResourceService[T, P]) Update(ctx context.Context, id string, item *T) (*T, error) {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	p := P(item)
	if err := s.runPrepare(p); err != nil {
		return nil, err
	}
	p.Stamp(id, P(existing).Created(), s.now())

	if err := s.repo.Update(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to update %s: %w", s.name, err)
	}

	s.logger.Infow("Resource updated", "id", id)

	return item, nil
}

// Delete removes the item with id
func (s *ResourceService[T, P]) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Infow("Resource deleted", "id", id)

	return nil
}

// List returns items matching filter
func (s *ResourceService[T, P]) List(ctx context.Context, filter ports.ListFilter) ([]*T, error) {
	return s.repo.List(ctx, filter)
}

func (s *ResourceService[T, P]) runPrepare(item P) error {
	if s.prepare == nil {
		return nil
	}
	return s.prepare(item)
}

var hashtagPattern = regexp.MustCompile(`(?:^|\s)#([\p{L}\p{N}_-]+)`)

// ExtractTags returns the distinct lower-cased #hashtags of text in order of appearance
func ExtractTags(text string) []string {
	var tags []string
	seen := map[string]struct{}{}
	for _, match := range hashtagPattern.FindAllStringSubmatch(text, -1) {
		tag := strings.ToLower(match[1])
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}
	return tags
}

func normalizeTags(tags entities.StringList, extra ...string) entities.StringList {
	out := entities.StringList{}
	seen := map[string]struct{}{}
	for _, tag := range append([]string(tags), extra...) {
		tag = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(tag), "#"))
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

// PrepareMemo merges inline #hashtags into the memo's tag list
func PrepareMemo(m *entities.Memo) error {
	if strings.TrimSpace(m.Content) == "" {
		return fmt.Errorf("%w: memo content is required", entities.ErrValidation)
	}
	m.Tags = normalizeTags(m.Tags, ExtractTags(m.Content)...)
	return nil
}

// PrepareBookmark defaults the title to the URL
func PrepareBookmark(b *entities.Bookmark) error {
	b.URL = strings.TrimSpace(b.URL)
	if b.URL == "" {
		return fmt.Errorf("%w: bookmark url is required", entities.ErrValidation)
	}
	if strings.TrimSpace(b.Title) == "" {
		b.Title = b.URL
	}
	b.Tags = normalizeTags(b.Tags)
	return nil
}

// PrepareEvent checks that start and end are RFC3339 and ordered. All-day events
// may use plain YYYY-MM-DD.
func PrepareEvent(e *entities.Event) error {
	start, err := parseEventTime(e.Start)
	if err != nil {
		return fmt.Errorf("%w: event start %q", entities.ErrValidation, e.Start)
	}
	if e.End == "" {
		return nil
	}
	end, err := parseEventTime(e.End)
	if err != nil {
		return fmt.Errorf("%w: event end %q", entities.ErrValidation, e.End)
	}
	if end.Before(start) {
		return fmt.Errorf("%w: event ends before it starts", entities.ErrValidation)
	}
	return nil
}

func parseEventTime(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Parse(entities.DateLayout, value)
}

// PrepareNotebook normalizes notebook tags
func PrepareNotebook(n *entities.Notebook) error {
	n.Tags = normalizeTags(n.Tags, ExtractTags(n.Content)...)
	return nil
}

// PrepareIdentity normalizes identity tags
func PrepareIdentity(i *entities.Identity) error {
	i.Tags = normalizeTags(i.Tags)
	return nil
}

// PrepareCredentialGroup never stores a nil credential list
func PrepareCredentialGroup(g *entities.CredentialGroup) error {
	if g.Credentials == nil {
		g.Credentials = entities.CredentialList{}
	}
	return nil
}
