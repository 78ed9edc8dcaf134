// Package worker runs PackFile I/O on a background goroutine. Callers send one
// typed request at a time and block for its single response.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/Faultbox/packedit/internal/app"
	"github.com/Faultbox/packedit/internal/logger"
	"github.com/Faultbox/packedit/pkg/packfile"
)

// ErrStopped is returned by Call once Run has returned.
var ErrStopped = errors.New("worker stopped")

type call struct {
	req  Request
	resp chan Response
}

// Worker owns the open PackFile. Only the Run goroutine touches it.
type Worker struct {
	app     *app.Context
	archive *packfile.Archive
	log     *zap.Logger

	calls chan call
	done  chan struct{}
	once  sync.Once
}

// New creates a worker over an opened PackFile.
func New(ctx *app.Context, archive *packfile.Archive) *Worker {
	return &Worker{
		app:     ctx,
		archive: archive,
		log:     ctx.Log.Named("worker"),
		calls:   make(chan call, ctx.Config.Worker.QueueSize),
		done:    make(chan struct{}),
	}
}

// Run serves requests until ctx is done. A request being handled always
// finishes before Run returns.
func (w *Worker) Run(ctx context.Context) error {
	defer w.once.Do(func() { close(w.done) })
	w.log.Debug("worker started")
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("worker stopped")
			return ctx.Err()
		case c := <-w.calls:
			c.resp <- w.handle(ctx, c.req)
		}
	}
}

// Call sends req and blocks for its response. ctx bounds only the wait for the
// worker to accept the request; once accepted, the request runs to completion.
func (w *Worker) Call(ctx context.Context, req Request) (Response, error) {
	if timeout := w.app.Config.Worker.CallTimeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	c := call{req: req, resp: make(chan Response, 1)}
	select {
	case w.calls <- c:
	case <-w.done:
		return nil, ErrStopped
	case <-ctx.Done():
		return nil, fmt.Errorf("sending %s: %w", req.requestName(), ctx.Err())
	}

	select {
	case resp := <-c.resp:
		return resp, nil
	case <-w.done:
		// Run may have answered just before stopping.
		select {
		case resp := <-c.resp:
			return resp, nil
		default:
			return nil, ErrStopped
		}
	}
}

// Expect narrows a response to the variant the caller asked for. An ErrorResp
// becomes an error. Any other variant means the request/response contract is
// broken, which is fatal.
func Expect[T Response](resp Response) (T, error) {
	var zero T
	switch r := resp.(type) {
	case T:
		return r, nil
	case ErrorResp:
		return zero, r.Err
	}
	name := "<nil>"
	if resp != nil {
		name = resp.responseName()
	}
	logger.Fatal("unexpected worker response",
		zap.String("got", name),
		zap.String("want", fmt.Sprintf("%T", zero)))
	return zero, nil
}

func (w *Worker) handle(ctx context.Context, req Request) Response {
	w.log.Debug("request", zap.String("type", req.requestName()))
	resp, err := w.dispatch(ctx, req)
	if err != nil {
		w.log.Warn("request failed", zap.String("type", req.requestName()), zap.Error(err))
		return ErrorResp{Err: err}
	}
	return resp
}

func (w *Worker) dispatch(ctx context.Context, req Request) (Response, error) {
	switch r := req.(type) {
	case GetPackedFile:
		data, err := w.archive.Read(r.Path)
		if err != nil {
			return nil, err
		}
		return PackedFileResp{Path: r.Path, Data: data}, nil

	case DecodePackedFile:
		return w.decode(r.Path)

	case SavePackedFile:
		w.archive.Add(r.Path, r.Data)
		return SuccessResp{}, nil

	case SaveTable:
		data, err := w.app.EncodeTable(r.Header, r.Table)
		if err != nil {
			return nil, fmt.Errorf("encoding %s: %w", r.Path, err)
		}
		if err := w.archive.Replace(r.Path, data); err != nil {
			return nil, err
		}
		return SuccessResp{}, nil

	case ImportTSV:
		resp, err := w.decode(r.Path)
		if err != nil {
			return nil, err
		}
		if _, err := resp.Table.ImportTSV(r.TSVPath); err != nil {
			return nil, err
		}
		data, err := w.app.EncodeTable(resp.Header, resp.Table)
		if err != nil {
			return nil, fmt.Errorf("encoding %s: %w", r.Path, err)
		}
		if err := w.archive.Replace(r.Path, data); err != nil {
			return nil, err
		}
		return resp, nil

	case ExportTSV:
		resp, err := w.decode(r.Path)
		if err != nil {
			return nil, err
		}
		if err := resp.Table.ExportTSV(r.TSVPath); err != nil {
			return nil, err
		}
		return SuccessResp{}, nil

	case GlobalSearch:
		return w.globalSearch(ctx, r)

	case SavePackFile:
		if err := w.archive.Save(r.Output); err != nil {
			return nil, fmt.Errorf("saving %s: %w", r.Output, err)
		}
		w.log.Info("packfile saved", zap.String("path", r.Output))
		return SuccessResp{}, nil

	case SaveSchema:
		if err := w.app.SaveSchema(); err != nil {
			return nil, err
		}
		return SuccessResp{}, nil
	}
	return nil, fmt.Errorf("unknown request %T", req)
}

func (w *Worker) decode(path string) (TableResp, error) {
	data, err := w.archive.Read(path)
	if err != nil {
		return TableResp{}, err
	}
	tb, h, err := w.app.OpenTable(path, data)
	if err != nil {
		return TableResp{}, err
	}
	return TableResp{Path: path, Header: h, Table: tb}, nil
}
