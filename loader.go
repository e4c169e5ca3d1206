package banjo

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sync"
	"time"
)

var ErrFileTooLarge = errors.New("file too large")

// A parsed and desugared source file.
type LoadedFile struct {
	Path          string
	Text          string
	Source        SourceExpr
	Core          CoreExpr
	ParseProblems []BadExpr
	modTime       time.Time
	size          int64
}

// Loads source files from a file system, caching each file's trees until the
// file's modification time or size changes.
type Loader struct {
	ctx     *Context
	fsys    fs.FS
	options Options
	logger  *slog.Logger

	mutex sync.Mutex
	cache map[string]*LoadedFile
}

func NewLoader(ctx *Context, fsys fs.FS, options Options) *Loader {
	return &Loader{
		ctx:     ctx,
		fsys:    fsys,
		options: options,
		logger:  options.logger(),
		cache:   map[string]*LoadedFile{},
	}
}

func (self *Loader) cached(path string, info fs.FileInfo) (*LoadedFile, bool) {
	self.mutex.Lock()
	defer self.mutex.Unlock()
	file, ok := self.cache[path]
	if !ok || !file.modTime.Equal(info.ModTime()) || file.size != info.Size() {
		return nil, false
	}
	return file, true
}

func (self *Loader) LoadFile(path string) (*LoadedFile, error) {
	info, err := fs.Stat(self.fsys, path)
	if err != nil {
		return nil, fmt.Errorf("error reading file '%s': %w", path, err)
	}
	if self.options.MaxFileSize > 0 && info.Size() > self.options.MaxFileSize {
		return nil, fmt.Errorf("error reading file '%s': %w (%d bytes)", path, ErrFileTooLarge, info.Size())
	}
	if file, ok := self.cached(path, info); ok {
		self.logger.Debug("cache hit", slog.String("path", path))
		return file, nil
	}
	self.logger.Debug("cache miss", slog.String("path", path))

	data, err := fs.ReadFile(self.fsys, path)
	if err != nil {
		return nil, fmt.Errorf("error reading file '%s': %w", path, err)
	}
	text := string(data)
	parsed := Parse(self.ctx, text, path)
	desugared := Desugar(self.ctx, parsed.Expr)
	file := &LoadedFile{
		Path:          path,
		Text:          text,
		Source:        parsed.Expr,
		Core:          desugared.Expr,
		ParseProblems: parsed.Problems,
		modTime:       info.ModTime(),
		size:          info.Size(),
	}
	self.logger.Debug("file loaded",
		slog.String("path", path),
		slog.Int("size", len(data)),
		slog.Int("problems", len(parsed.Problems)+len(desugared.Problems)))

	self.mutex.Lock()
	self.cache[path] = file
	self.mutex.Unlock()
	return file, nil
}

func (self *Loader) Invalidate(path string) {
	self.mutex.Lock()
	defer self.mutex.Unlock()
	delete(self.cache, path)
}

func (self *Loader) Clear() {
	self.mutex.Lock()
	defer self.mutex.Unlock()
	self.cache = map[string]*LoadedFile{}
}

// The slots a file contributes to its project. A file that is not an object
// contributes a single unnamed slot so its problems stay reachable.
func topLevelSlots(e CoreExpr) []CoreSlot {
	switch e := e.(type) {
	case *CoreObject:
		return e.Slots
	case *CoreLet:
		object, ok := e.Body.(*CoreObject)
		if !ok {
			break
		}
		for _, binding := range e.Bindings {
			if binding.Name != "" {
				return []CoreSlot{{Value: e}}
			}
		}
		return append(append([]CoreSlot{}, e.Bindings...), object.Slots...)
	}
	return []CoreSlot{{Value: e}}
}

// Merges the top-level objects of every file into one object. A missing file
// becomes a bad expression in that file; other host errors are logged, the
// file is skipped, and the errors are returned joined.
func (self *Loader) LoadFromPaths(paths []string) (CoreExpr, error) {
	var slots []CoreSlot
	var ranges SourceRanges
	var errs []error
	defined := map[string]bool{}
	for _, path := range paths {
		file, err := self.LoadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			missing := self.ctx.NewCoreBad(NewSourceRanges(EmptyRange(path)), err.Error())
			slots = append(slots, CoreSlot{Value: missing})
			continue
		}
		if err != nil {
			self.logger.Warn("file skipped", slog.String("path", path), slog.Any("error", err))
			errs = append(errs, err)
			continue
		}

		ranges = ranges.Union(file.Core.SourceRanges())
		for _, slot := range topLevelSlots(file.Core) {
			if slot.Name == "" {
				slots = append(slots, slot)
				continue
			}
			if defined[slot.Name] {
				message := fmt.Sprintf("duplicate top-level slot %s", quote(slot.Name))
				duplicate := self.ctx.NewCoreBad(slot.Value.SourceRanges(), message)
				slots = append(slots, CoreSlot{Value: duplicate})
				continue
			}
			defined[slot.Name] = true
			slots = append(slots, slot)
		}
	}
	return self.ctx.NewCoreObject(ranges, slots), errors.Join(errs...)
}

// Names visible to the file at path: the runtime's names and the top-level
// slots of the other project files.
func (self *Loader) Bindings(path string, projectPaths []string) []Binding {
	bindings := RuntimeBindings(self.ctx)
	for _, other := range projectPaths {
		if other == path {
			continue
		}
		file, err := self.LoadFile(other)
		if err != nil {
			continue
		}
		for _, slot := range topLevelSlots(file.Core) {
			if slot.Name != "" {
				bindings = append(bindings, Binding{Name: slot.Name, Definition: slot.Value})
			}
		}
	}
	return bindings
}
