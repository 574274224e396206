package fscope

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sync"
)

// DefaultMaxActive bounds the number of scoped accesses held at once when no
// limit is configured.
const DefaultMaxActive = 512

// AccessConfig holds AccessGuard settings.
type AccessConfig struct {
	// MaxActive is the process-wide limit of concurrently held scopes.
	MaxActive int
	// Sandbox lists roots the application may always touch. Locations under
	// them need no scoped access.
	Sandbox []string
}

// AccessStats counts scoped access acquisitions. Acquired-Released == Active
// at all times.
type AccessStats struct {
	Acquired uint64
	Released uint64
	Active   int
}

// AccessGuard creates and resolves access tokens and brackets scoped access
// to locations outside the sandbox.
type AccessGuard struct {
	fsys    Filesystem
	sealer  TokenSealer
	clock   Clock
	idgen   IDGenerator
	logger  Logger
	sandbox []string
	limit   int

	mu       sync.Mutex
	active   int
	acquired uint64
	released uint64
}

// NewAccessGuard creates an AccessGuard.
func NewAccessGuard(fsys Filesystem, sealer TokenSealer, cfg AccessConfig, clock Clock, idgen IDGenerator, logger Logger) *AccessGuard {
	limit := cfg.MaxActive
	if limit <= 0 {
		limit = DefaultMaxActive
	}

	var sandbox []string
	for _, root := range cfg.Sandbox {
		abs, err := cleanAbs(root)
		if err != nil {
			logger.Warn("ignoring sandbox root", "root", root, "error", err)
			continue
		}
		sandbox = append(sandbox, abs)
	}

	return &AccessGuard{
		fsys:    fsys,
		sealer:  sealer,
		clock:   clock,
		idgen:   idgen,
		logger:  logger,
		sandbox: sandbox,
		limit:   limit,
	}
}

// CreateToken produces a token for the file or directory at path.
func (g *AccessGuard) CreateToken(path string) (AccessToken, error) {
	abs, err := cleanAbs(path)
	if err != nil {
		return nil, opError("create token", path, ErrTokenCreationFailed, err)
	}

	info, err := g.fsys.Lstat(abs)
	if err != nil {
		return nil, opError("create token", abs, ErrTokenCreationFailed, err)
	}
	if err := checkBookmarkable(info); err != nil {
		return nil, opError("create token", abs, ErrTokenCreationFailed, err)
	}
	id, ok := g.fsys.Identity(info)
	if !ok {
		return nil, opError("create token", abs, ErrTokenCreationFailed, fmt.Errorf("no file identity available"))
	}

	data, err := encodePayload(tokenPayload{
		Version:   tokenVersion,
		ID:        g.idgen.New(),
		Path:      abs,
		Dev:       id.Dev,
		Ino:       id.Ino,
		IsDir:     info.IsDir(),
		CreatedAt: g.clock.Now().UTC(),
	})
	if err != nil {
		return nil, opError("create token", abs, ErrTokenCreationFailed, err)
	}

	sealed, err := g.sealer.Seal(data)
	if err != nil {
		return nil, opError("create token", abs, ErrTokenCreationFailed, err)
	}

	g.logger.Debug("token created", "path", abs)
	return AccessToken(sealed), nil
}

// ResolveToken returns the location tok refers to now. A location that was
// renamed within its parent directory, or replaced by another object, still
// resolves but is reported stale.
func (g *AccessGuard) ResolveToken(tok AccessToken) (ResolvedLocation, error) {
	data, err := g.sealer.Open(tok)
	if err != nil {
		return ResolvedLocation{}, opError("resolve token", "", ErrTokenResolutionFailed, err)
	}
	p, err := decodePayload(data)
	if err != nil {
		return ResolvedLocation{}, opError("resolve token", "", ErrTokenResolutionFailed, err)
	}

	info, statErr := g.fsys.Lstat(p.Path)
	if statErr == nil {
		if id, ok := g.fsys.Identity(info); ok && id == p.identity() {
			return ResolvedLocation{Path: p.Path, IsDir: info.IsDir()}, nil
		}
	}

	if moved, info, ok := g.findByIdentity(filepath.Dir(p.Path), p.identity()); ok {
		g.logger.Info("token target moved", "from", p.Path, "to", moved)
		return ResolvedLocation{Path: moved, IsDir: info.IsDir(), Stale: true}, nil
	}

	if statErr == nil {
		g.logger.Info("token target replaced", "path", p.Path)
		return ResolvedLocation{Path: p.Path, IsDir: info.IsDir(), Stale: true}, nil
	}

	return ResolvedLocation{}, opError("resolve token", p.Path, ErrTokenResolutionFailed, statErr)
}

func (g *AccessGuard) findByIdentity(dir string, want FileID) (string, fs.FileInfo, bool) {
	entries, err := g.fsys.ReadDir(dir)
	if err != nil {
		return "", nil, false
	}
	for _, entry := range entries {
		candidate := filepath.Join(dir, entry.Name())
		info, err := g.fsys.Lstat(candidate)
		if err != nil {
			continue
		}
		if id, ok := g.fsys.Identity(info); ok && id == want {
			return candidate, info, true
		}
	}
	return "", nil, false
}

// checkBookmarkable rejects special file types, mirroring what the OS
// refuses to bookmark.
func checkBookmarkable(info fs.FileInfo) error {
	mode := info.Mode()
	switch {
	case mode&fs.ModeSymlink != 0:
		return fmt.Errorf("symlinks not supported")
	case mode&fs.ModeDevice != 0:
		return fmt.Errorf("device files not supported")
	case mode&fs.ModeNamedPipe != 0:
		return fmt.Errorf("named pipes not supported")
	case mode&fs.ModeSocket != 0:
		return fmt.Errorf("sockets not supported")
	}
	return nil
}

// Scope is one held scoped access. Stop must be called exactly once per
// Scope; further calls are no-ops.
type Scope struct {
	guard  *AccessGuard
	path   string
	scoped bool
	once   sync.Once
}

// Path returns the location the scope covers.
func (s *Scope) Path() string {
	return s.path
}

// Scoped reports whether the scope holds an access slot. Scopes for
// sandboxed locations do not.
func (s *Scope) Scoped() bool {
	return s.scoped
}

// Stop releases the access.
func (s *Scope) Stop() {
	s.once.Do(func() {
		if s.scoped {
			s.guard.release(s.path)
		}
	})
}

// Start begins scoped access to path. The returned Scope must be stopped;
// prefer With, which guarantees it.
func (g *AccessGuard) Start(path string) (*Scope, error) {
	abs, err := cleanAbs(path)
	if err != nil {
		return nil, opError("start access", path, ErrAccessDenied, err)
	}

	if g.inSandbox(abs) {
		return &Scope{guard: g, path: abs}, nil
	}

	if !g.fsys.Readable(abs) {
		return nil, opError("start access", abs, ErrAccessDenied, fs.ErrPermission)
	}

	g.mu.Lock()
	if g.active >= g.limit {
		g.mu.Unlock()
		g.logger.Warn("scoped access limit reached", "path", abs, "limit", g.limit)
		return nil, opError("start access", abs, ErrAccessDenied, ErrAccessLimitReached)
	}
	g.active++
	g.acquired++
	g.mu.Unlock()

	g.logger.Debug("scoped access started", "path", abs)
	return &Scope{guard: g, path: abs, scoped: true}, nil
}

// With runs fn while holding scoped access to path. Access is released when
// fn returns, fails or panics.
func (g *AccessGuard) With(path string, fn func() error) error {
	scope, err := g.Start(path)
	if err != nil {
		return err
	}
	defer scope.Stop()
	return fn()
}

// Stats returns the acquisition counters.
func (g *AccessGuard) Stats() AccessStats {
	g.mu.Lock()
	defer g.mu.Unlock()
	return AccessStats{
		Acquired: g.acquired,
		Released: g.released,
		Active:   g.active,
	}
}

func (g *AccessGuard) release(path string) {
	g.mu.Lock()
	g.active--
	g.released++
	g.mu.Unlock()
	g.logger.Debug("scoped access stopped", "path", path)
}

func (g *AccessGuard) inSandbox(path string) bool {
	for _, root := range g.sandbox {
		if within(root, path) {
			return true
		}
	}
	return false
}
