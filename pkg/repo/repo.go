// Package repo wires C1-C9 into the single facade the CLI (cmd/branchdb)
// drives, analogous to the teacher's pkg/store.Store: one owner of the KV
// handle, exposing the Git-like operations spec.md §6 names as the CLI
// surface.
package repo

import (
	"fmt"
	"os"
	"path/filepath"

	"branchdb/internal/config"
	"branchdb/pkg/branch"
	"branchdb/pkg/commitstore"
	"branchdb/pkg/hash"
	"branchdb/pkg/ingest"
	"branchdb/pkg/kv"
	"branchdb/pkg/mergeplan"
	"branchdb/pkg/model"
	"branchdb/pkg/view"

	"github.com/rs/zerolog"
)

// dbFileName is the bbolt data file inside a repository directory.
const dbFileName = "branchdb.db"

// Repo is the top-level facade over the versioned table store.
type Repo struct {
	dir      string
	store    *kv.BoltStore
	commits  *commitstore.Store
	branches *branch.Manager
	view     *view.View
	merge    *mergeplan.Planner
	cfg      config.Config
	log      zerolog.Logger
}

// Init creates a new repository directory at path with a fresh KV store
// and default branchdb.toml, matching the CLI's `init <path>` (spec.md §6).
func Init(path string, log zerolog.Logger) (*Repo, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("repo: creating %s: %w", path, err)
	}
	if _, err := os.Stat(config.Path(path)); os.IsNotExist(err) {
		if err := config.WriteDefault(path); err != nil {
			return nil, err
		}
	}
	return Open(path, log)
}

// Open opens an existing repository directory, wiring its bbolt-backed KV
// store into the C1-C9 stack.
func Open(path string, log zerolog.Logger) (*Repo, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil && lvl != zerolog.NoLevel {
		log = log.Level(lvl)
	}

	store, err := kv.Open(filepath.Join(path, dbFileName))
	if err != nil {
		return nil, fmt.Errorf("repo: opening store: %w", err)
	}

	commits := commitstore.New(store)
	branches := branch.New(store)
	v := view.New(commits)
	planner := mergeplan.New(commits, branches, v)

	return &Repo{
		dir:      path,
		store:    store,
		commits:  commits,
		branches: branches,
		view:     v,
		merge:    planner,
		cfg:      cfg,
		log:      log,
	}, nil
}

// Close releases the underlying KV handle.
func (r *Repo) Close() error { return r.store.Close() }

// Commit records a new commit with the given changes (spec.md §6 `commit`).
func (r *Repo) Commit(message string, changes []model.Change) (hash.Hash, error) {
	h, err := r.commits.CreateCommit(message, changes)
	if err != nil {
		return hash.Zero, err
	}
	r.log.Info().Str("commit", h.String()).Msg("created commit")
	return h, nil
}

// CreateBranch points a new branch at the current HEAD.
func (r *Repo) CreateBranch(name string) error {
	head, err := r.commits.Head()
	if err != nil {
		return err
	}
	return r.branches.Create(name, head)
}

// DeleteBranch removes a branch ref.
func (r *Repo) DeleteBranch(name string) error {
	return r.branches.Delete(name)
}

// BranchHead returns the commit hash a branch points to, without moving HEAD.
func (r *Repo) BranchHead(name string) (hash.Hash, error) {
	return r.branches.HeadOf(name)
}

// ListBranches returns every branch name.
func (r *Repo) ListBranches() ([]string, error) {
	return r.branches.List()
}

// CurrentBranch returns the branch name pointing at HEAD, if any.
func (r *Repo) CurrentBranch() (string, bool, error) {
	head, err := r.commits.Head()
	if err != nil {
		return "", false, err
	}
	return r.branches.Current(head)
}

// Checkout moves HEAD to target, first trying it as a branch name, then as
// a 64-char hex commit hash (spec.md §6 `checkout`). On success, if
// checking out a branch by name, the branch's own ref is also left
// untouched (branch tips never move except via create/delete).
func (r *Repo) Checkout(target string) (hash.Hash, error) {
	if h, err := r.branches.HeadOf(target); err == nil {
		if err := r.commits.SetHead(h); err != nil {
			return hash.Zero, err
		}
		return h, nil
	}

	h, err := hash.FromHex(target)
	if err != nil {
		return hash.Zero, fmt.Errorf("repo: %q is neither a known branch nor a valid commit hash: %w", target, err)
	}
	if _, err := r.commits.GetCommit(h); err != nil {
		return hash.Zero, err
	}
	if err := r.commits.SetHead(h); err != nil {
		return hash.Zero, err
	}
	return h, nil
}

// LogEntry is one line of `log`/`history` output.
type LogEntry struct {
	Hash   hash.Hash
	Commit model.Commit
}

// Log walks HEAD's primary-parent ancestry, newest first, stopping after
// limit entries (0 means unlimited). Both `log` and `history` share this
// walk; they differ only in how the CLI formats each entry (SPEC_FULL.md §4).
func (r *Repo) Log(limit int) ([]LogEntry, error) {
	head, err := r.commits.Head()
	if err != nil {
		return nil, err
	}
	var entries []LogEntry
	err = r.commits.WalkAncestry(head, func(h hash.Hash, c model.Commit) (bool, error) {
		entries = append(entries, LogEntry{Hash: h, Commit: c})
		if limit > 0 && len(entries) >= limit {
			return false, nil
		}
		return true, nil
	})
	return entries, err
}

// Diff returns the Changes needed to turn from's materialized state into to's.
func (r *Repo) Diff(from, to hash.Hash) ([]model.Change, error) {
	return r.view.Diff(from, to)
}

// Revert records a forward-moving commit reverting to target.
func (r *Repo) Revert(target hash.Hash) (hash.Hash, error) {
	return r.commits.RevertTo(target)
}

// Merge folds branch name into HEAD.
func (r *Repo) Merge(name string) (hash.Hash, error) {
	return r.merge.MergeBranch(name)
}

// RunSQL tokenizes and commits a CREATE/INSERT/UPDATE/ALTER statement.
func (r *Repo) RunSQL(stmt string) (hash.Hash, error) {
	changes, err := ingest.ExecuteSQL(stmt)
	if err != nil {
		return hash.Zero, err
	}
	return r.commits.CreateCommit(fmt.Sprintf("SQL: %s", stmt), changes)
}

// RunQuery parses and runs a `SELECT * FROM t WITH <hex>` query.
func (r *Repo) RunQuery(stmt string) (map[string]model.CrdtValue, error) {
	q, err := ingest.ParseQuery(stmt)
	if err != nil {
		return nil, err
	}
	return ingest.RunQuery(r.view, q)
}

// ImportCSV reads a CSV file at path and commits its rows into table.
func (r *Repo) ImportCSV(path, table string) (hash.Hash, error) {
	f, err := os.Open(path)
	if err != nil {
		return hash.Zero, fmt.Errorf("repo: opening %s: %w", path, err)
	}
	defer f.Close()

	changes, err := ingest.ImportCSV(f, table, r.log)
	if err != nil {
		return hash.Zero, err
	}
	return r.commits.CreateCommit(fmt.Sprintf("Import %s into %s", path, table), changes)
}

// ShowTableResult is the materialized or raw-scanned view `show-table` prints.
type ShowTableResult struct {
	Rows    map[string]model.CrdtValue
	RawScan [][2]string
	Raw     bool
}

// ShowTable materializes table at commit (defaulting to HEAD); on
// materialization failure it falls back to a raw `<table>:` prefix scan and
// still returns successfully, matching spec.md §7's one sanctioned fallback
// path.
func (r *Repo) ShowTable(table string, at hash.Hash) (ShowTableResult, error) {
	if at.IsZero() {
		head, err := r.commits.Head()
		if err != nil {
			return ShowTableResult{}, err
		}
		at = head
	}

	rows, err := r.view.Materialize(table, at)
	if err == nil {
		return ShowTableResult{Rows: rows}, nil
	}

	r.log.Warn().Err(err).Str("table", table).Msg("materialization failed, falling back to raw scan")
	raw, scanErr := r.commits.ScanTable(table)
	if scanErr != nil {
		return ShowTableResult{}, fmt.Errorf("repo: raw fallback scan for %q also failed: %w", table, scanErr)
	}
	return ShowTableResult{RawScan: raw, Raw: true}, nil
}

// Head exposes the current HEAD hash.
func (r *Repo) Head() (hash.Hash, error) { return r.commits.Head() }

// GetCommit fetches a commit by hash, used by the CLI's diff/revert hex parsing.
func (r *Repo) GetCommit(h hash.Hash) (model.Commit, error) { return r.commits.GetCommit(h) }

// Dir returns the repository's root directory.
func (r *Repo) Dir() string { return r.dir }
