package application

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/saransh1220/filebox/internal/modules/files/domain"
)

// platform is an in-memory pair of stores shared by every user, with
// failure injection per call kind.
type platform struct {
	mu      sync.Mutex
	records map[uuid.UUID]domain.File
	objects map[string][]byte
	orphans []recordedOrphan
	calls   []string
	clock   time.Time

	putErr       error
	insertErr    error
	removeErrs   []error // consumed one per Remove call; nil entries succeed
	removeAlways error
	deleteErr    error
	listErr      error
	orphanErr    error
}

type recordedOrphan struct {
	key    string
	reason domain.OrphanReason
	cause  error
}

func newPlatform() *platform {
	return &platform{
		records: map[uuid.UUID]domain.File{},
		objects: map[string][]byte{},
		clock:   time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (p *platform) client(userID uuid.UUID) *fakeClient {
	return &fakeClient{p: p, userID: userID}
}

func (p *platform) record(call string) {
	p.calls = append(p.calls, call)
}

func (p *platform) callLog() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

func (p *platform) objectKeys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	keys := make([]string, 0, len(p.objects))
	for k := range p.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type fakeClient struct {
	p      *platform
	userID uuid.UUID
}

func (c *fakeClient) UserID() uuid.UUID { return c.userID }
func (c *fakeClient) Files() domain.MetadataStore { return fakeFiles{c} }
func (c *fakeClient) Objects() domain.ObjectStore { return fakeObjects{c} }
func (c *fakeClient) Orphans() domain.OrphanRecorder { return fakeOrphans{c} }

type fakeFiles struct{ c *fakeClient }

func (f fakeFiles) List(context.Context) ([]domain.File, error) {
	p := f.c.p
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("list")
	if p.listErr != nil {
		return nil, p.listErr
	}
	var out []domain.File
	for _, r := range p.records {
		if r.UserID == f.c.userID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f fakeFiles) Insert(_ context.Context, file *domain.File) error {
	p := f.c.p
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("insert:" + file.Name)
	if p.insertErr != nil {
		return p.insertErr
	}
	for _, r := range p.records {
		if r.UserID == file.UserID && r.Name == file.Name {
			return errors.New("duplicate key value violates unique constraint")
		}
	}
	p.clock = p.clock.Add(time.Second)
	file.ID = uuid.New()
	file.CreatedAt = p.clock
	p.records[file.ID] = *file
	return nil
}

func (f fakeFiles) Get(_ context.Context, id uuid.UUID) (*domain.File, error) {
	p := f.c.p
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("get")
	r, ok := p.records[id]
	if !ok || r.UserID != f.c.userID {
		return nil, domain.ErrNotFound
	}
	return &r, nil
}

func (f fakeFiles) Delete(_ context.Context, id uuid.UUID) error {
	p := f.c.p
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("delete-record")
	if p.deleteErr != nil {
		return p.deleteErr
	}
	r, ok := p.records[id]
	if !ok || r.UserID != f.c.userID {
		return domain.ErrNotFound
	}
	delete(p.records, id)
	return nil
}

type fakeObjects struct{ c *fakeClient }

var errForeignKey = errors.New("key outside caller prefix")

func (o fakeObjects) Put(_ context.Context, key string, body io.Reader, _ int64, _ string) error {
	p := o.c.p
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("put:" + key)
	if !strings.HasPrefix(key, o.c.userID.String()+"/") {
		return errForeignKey
	}
	if p.putErr != nil {
		return p.putErr
	}
	if _, exists := p.objects[key]; exists {
		return errors.New("object exists")
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	p.objects[key] = data
	return nil
}

func (o fakeObjects) Remove(_ context.Context, key string) error {
	p := o.c.p
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("remove:" + key)
	if !strings.HasPrefix(key, o.c.userID.String()+"/") {
		return errForeignKey
	}
	if p.removeAlways != nil {
		return p.removeAlways
	}
	if len(p.removeErrs) > 0 {
		err := p.removeErrs[0]
		p.removeErrs = p.removeErrs[1:]
		if err != nil {
			return err
		}
	}
	delete(p.objects, key)
	return nil
}

type fakeOrphans struct{ c *fakeClient }

func (o fakeOrphans) Record(_ context.Context, key string, reason domain.OrphanReason, cause error) error {
	p := o.c.p
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("orphan:" + key)
	if p.orphanErr != nil {
		return p.orphanErr
	}
	p.orphans = append(p.orphans, recordedOrphan{key: key, reason: reason, cause: cause})
	return nil
}

type transition struct {
	op       domain.Operation
	from, to domain.State
}

type transitionLog struct {
	mu   sync.Mutex
	seen []transition
}

func (l *transitionLog) Transition(op domain.Operation, from, to domain.State) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seen = append(l.seen, transition{op, from, to})
}

func (l *transitionLog) states() []domain.State {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []domain.State
	for i, t := range l.seen {
		if i == 0 {
			out = append(out, t.from)
		}
		out = append(out, t.to)
	}
	return out
}

type publishedEvent struct {
	userID    uuid.UUID
	eventType string
	payload   any
}

type eventSink struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (s *eventSink) Publish(userID uuid.UUID, eventType string, payload any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, publishedEvent{userID, eventType, payload})
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
