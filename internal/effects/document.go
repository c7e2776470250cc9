package effects

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dmelo/ragchat/internal/auth"
	"github.com/dmelo/ragchat/internal/bus"
	"github.com/dmelo/ragchat/internal/client"
	"github.com/dmelo/ragchat/internal/document"
	"github.com/dmelo/ragchat/internal/state"
	"github.com/dmelo/ragchat/internal/store"
)

// Uploader is the slice of the API client the document effects need.
type Uploader interface {
	UploadDocument(ctx context.Context, filename string, data []byte, threadID string) (*client.IngestResponse, error)
}

// Document wires upload actions to the ingestion endpoint and persists
// each thread's document map after it changes.
type Document struct {
	store  *state.Store
	db     *store.DB
	api    Uploader
	bus    *bus.Bus
	logger *zap.Logger

	cancel context.CancelFunc
	unsub  func()
	wg     sync.WaitGroup
}

// NewDocument creates the document effect handler. Call Start to begin.
func NewDocument(st *state.Store, db *store.DB, api Uploader, b *bus.Bus, logger *zap.Logger) *Document {
	return &Document{store: st, db: db, api: api, bus: b, logger: logger}
}

// Start subscribes to the document namespace and runs the handler loop.
func (d *Document) Start(ctx context.Context) {
	ctx, d.cancel = context.WithCancel(ctx)
	ch, unsub := d.bus.Subscribe(bus.NamespaceDocument, 256)
	d.unsub = unsub

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for {
			select {
			case evt := <-ch:
				d.handle(ctx, evt)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop cancels in-flight uploads and waits for the loop to exit.
func (d *Document) Stop() {
	if d.cancel != nil {
		d.cancel()
	}
	if d.unsub != nil {
		d.unsub()
	}
	d.wg.Wait()
}

func (d *Document) handle(ctx context.Context, evt bus.Event) {
	switch a := evt.Payload.(type) {
	case document.Upload:
		d.store.Dispatch(document.UploadProgress{Summary: document.Summary{
			Filename:   a.Filename,
			UploadedAt: time.Now(),
			Status:     document.StatusProcessing,
		}})
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			d.upload(ctx, a)
		}()

	case document.UploadDone:
		docs := d.store.Documents().ThreadDocuments(a.ThreadID)
		if err := d.db.SaveDocuments(a.ThreadID, docs); err != nil {
			d.warn("save documents", err)
		}

	case document.LoadDocuments:
		docs, err := d.db.LoadDocuments(a.ThreadID)
		if err != nil {
			d.warn("load documents", err)
			return
		}
		d.store.Dispatch(document.DocumentsLoaded{ThreadID: a.ThreadID, Documents: docs})
	}
}

func (d *Document) upload(ctx context.Context, a document.Upload) {
	resp, err := d.api.UploadDocument(ctx, a.Filename, a.Data, a.ThreadID)
	if err != nil {
		if errors.Is(err, auth.ErrSessionExpired) {
			d.bus.Publish(bus.Event{Kind: bus.KindSessionLoggedOut, Timestamp: time.Now()})
		}
		d.store.Dispatch(document.UploadFailed{Err: err.Error()})
		return
	}
	d.store.Dispatch(document.NewUploadDone(a.ThreadID, resp.Filename, resp.Documents, resp.Chunks))
}

func (d *Document) warn(op string, err error) {
	if d.logger != nil {
		d.logger.Warn("document effect: "+op, zap.Error(err))
	}
}
