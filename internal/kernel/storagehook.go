package kernel

import (
	"context"
	"database/sql"

	"github.com/mycelia/kernel/internal/storage"
	"github.com/mycelia/kernel/internal/util/future"
)

// ContractStorage is the domain-specific (non-mandatory) contract a
// storage-consuming hook depends on (SPEC_FULL.md §4.13).
const ContractStorage = "storage"

// lazyBackend satisfies storage.Backend's method set the instant it's
// constructed, before the real connection exists, so the facet it backs
// passes contract enforcement (builder.go's execute, run immediately after
// the hook factory returns) without needing the backend to be open yet.
// Every call blocks on ready until init() populates backend or fails it.
type lazyBackend struct {
	ready   chan struct{}
	backend storage.Backend
	err     error
}

func newLazyBackend() *lazyBackend {
	return &lazyBackend{ready: make(chan struct{})}
}

func (l *lazyBackend) resolve(b storage.Backend, err error) {
	l.backend, l.err = b, err
	close(l.ready)
}

func (l *lazyBackend) wait() (storage.Backend, error) {
	<-l.ready
	return l.backend, l.err
}

func (l *lazyBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := l.wait()
	if err != nil {
		return nil, false, err
	}
	return b.Get(ctx, key)
}

func (l *lazyBackend) Put(ctx context.Context, key string, value []byte) error {
	b, err := l.wait()
	if err != nil {
		return err
	}
	return b.Put(ctx, key, value)
}

func (l *lazyBackend) Delete(ctx context.Context, key string) error {
	b, err := l.wait()
	if err != nil {
		return err
	}
	return b.Delete(ctx, key)
}

func (l *lazyBackend) Query(ctx context.Context, sqlText string, args ...any) (*sql.Rows, error) {
	b, err := l.wait()
	if err != nil {
		return nil, err
	}
	return b.Query(ctx, sqlText, args...)
}

func (l *lazyBackend) Exec(ctx context.Context, sqlText string, args ...any) (sql.Result, error) {
	b, err := l.wait()
	if err != nil {
		return nil, err
	}
	return b.Exec(ctx, sqlText, args...)
}

func (l *lazyBackend) Close() error {
	b, err := l.wait()
	if err != nil {
		return nil
	}
	return b.Close()
}

// HookStorage installs the `storage` facet, opening the backend connection
// during init() per spec.md §5's async-suspension-point rule: a connection
// failure surfaces as a dependency build error and aborts the batch,
// leaving any already-committed facets in place for dispose().
func HookStorage() Hook {
	return NewHook("storage", func(ctx BuildCtx, api *HookAPI, s *Subsystem) (*Facet, error) {
		cfg := ctx.ConfigFor("storage")
		backendName, _ := cfg["backend"].(string)

		dsn := ""
		if opts, ok := cfg["options"].(map[string]any); ok {
			if v, ok := opts["dsn"].(string); ok {
				dsn = v
			}
		}

		lazy := newLazyBackend()
		facet := NewFacet("storage", lazy).WithContract(ContractStorage).WithAttach(true)
		facet.OnInit(func() error {
			// The connection open runs on its own goroutine via future.Future
			// and is awaited here, so init() is the suspension point spec.md
			// §5 describes even though the cooperative scheduler itself never
			// yields mid-build. Callers already holding facet.Value (the
			// lazyBackend itself, fixed at factory time) block in wait()
			// until this resolves rather than observing a nil Value.
			opened := future.New(func() (storage.Backend, error) {
				return storage.Open(backendName, storage.Options{DSN: dsn})
			})
			b, err := opened.Await()
			lazy.resolve(b, err)
			if err != nil {
				return WrapError(KindDependency, "hooks.storage", "failed to open storage backend "+backendName, err)
			}
			return nil
		})
		facet.OnDispose(func() error {
			// Non-blocking: init may never have run (an earlier facet in
			// the same batch could have failed first), and dispose must
			// never hang waiting on a connection that will never open.
			select {
			case <-lazy.ready:
				if lazy.err != nil || lazy.backend == nil {
					return nil
				}
				return lazy.backend.Close()
			default:
				return nil
			}
		})
		return facet, nil
	}).Contract(ContractStorage).Attach(true)
}

// registerStorageContract installs the storage contract spec onto r. Called
// by kernels that choose to wire HookStorage, keeping the mandatory seven
// in registerBuiltinContracts free of domain-specific surface.
func registerStorageContract(r *ContractRegistry) error {
	return r.Register(ContractSpec{
		Name:            ContractStorage,
		RequiredMethods: []string{"Get", "Put", "Delete", "Query", "Exec", "Close"},
	})
}
