// Package script runs metadata providers written in JavaScript. Each provider lives
// in its own directory holding a manifest.json and a main.js that defines a `plugin`
// global.
package script

import (
	"context"
	"os"
	"path/filepath"
	"sort"

	"github.com/dop251/goja"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/segmentio/encoding/json"
	"github.com/shishobooks/kino/pkg/metadata"
	"github.com/shishobooks/kino/pkg/models"
)

// Functions a script may define on its plugin object.
const (
	fnGetShow           = "getShow"
	fnGetSeason         = "getSeason"
	fnGetEntry          = "getEntry"
	fnGetCollection     = "getCollection"
	fnGetPeople         = "getPeople"
	fnSearchShows       = "searchShows"
	fnSearchCollections = "searchCollections"
	fnSearchPeople      = "searchPeople"
)

var functionNames = []string{
	fnGetShow, fnGetSeason, fnGetEntry, fnGetCollection, fnGetPeople,
	fnSearchShows, fnSearchCollections, fnSearchPeople,
}

// Provider is a metadata provider backed by one goja VM. Calls are serialized, since a
// VM is not safe for concurrent use.
type Provider struct {
	vm        *goja.Runtime
	manifest  *Manifest
	functions map[string]goja.Callable
	// sem holds the VM. A call that cannot get it before its context ends gives up.
	sem chan struct{}
	// ctx is the context of the running call, read by host functions.
	ctx context.Context
}

var _ metadata.Provider = (*Provider)(nil)

// Load creates a provider by reading manifest.json and executing main.js from dir.
func Load(dir string) (*Provider, error) {
	manifestData, err := os.ReadFile(filepath.Join(dir, "manifest.json"))
	if err != nil {
		return nil, errors.Wrap(err, "failed to read manifest.json")
	}
	manifest, err := ParseManifest(manifestData)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse manifest")
	}

	mainJS, err := os.ReadFile(filepath.Join(dir, "main.js"))
	if err != nil {
		return nil, errors.Wrap(err, "failed to read main.js")
	}

	p := &Provider{
		vm:        goja.New(),
		manifest:  manifest,
		functions: map[string]goja.Callable{},
		sem:       make(chan struct{}, 1),
		ctx:       context.Background(),
	}

	if err := injectHostAPIs(p); err != nil {
		return nil, err
	}

	if _, err := p.vm.RunString(string(mainJS)); err != nil {
		return nil, errors.Wrap(err, "failed to execute main.js")
	}

	pluginVal := p.vm.Get("plugin")
	if pluginVal == nil || goja.IsUndefined(pluginVal) || goja.IsNull(pluginVal) {
		return nil, errors.New("main.js did not define a 'plugin' global")
	}
	pluginObj := pluginVal.ToObject(p.vm)

	for _, name := range functionNames {
		val := pluginObj.Get(name)
		if val == nil || goja.IsUndefined(val) || goja.IsNull(val) {
			continue
		}
		fn, ok := goja.AssertFunction(val)
		if !ok {
			return nil, errors.Errorf("plugin.%s is not a function", name)
		}
		p.functions[name] = fn
	}

	return p, nil
}

// LoadDir loads every provider found in the subdirectories of root, sorted by
// directory name. A directory that fails to load is logged and skipped. A missing
// root yields no providers.
func LoadDir(ctx context.Context, root string) ([]*Provider, error) {
	log := logger.FromContext(ctx)

	dirEntries, err := os.ReadDir(root)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.WithStack(err)
	}
	sort.Slice(dirEntries, func(i, j int) bool { return dirEntries[i].Name() < dirEntries[j].Name() })

	var providers []*Provider
	for _, de := range dirEntries {
		if !de.IsDir() {
			continue
		}
		dir := filepath.Join(root, de.Name())
		p, err := Load(dir)
		if err != nil {
			log.Err(err).Warn("skipping script provider", logger.Data{"dir": dir})
			continue
		}
		providers = append(providers, p)
	}
	return providers, nil
}

// Slug returns the manifest id.
func (p *Provider) Slug() string {
	return p.manifest.ID
}

func (p *Provider) Manifest() *Manifest {
	return p.manifest
}

// Functions returns the names of the plugin functions the script defines, sorted.
func (p *Provider) Functions() []string {
	names := make([]string, 0, len(p.functions))
	for name := range p.functions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (p *Provider) GetShow(ctx context.Context, seed *models.Show) (*models.Show, error) {
	return invoke[*models.Show](ctx, p, fnGetShow, seed)
}

func (p *Provider) GetSeason(ctx context.Context, seed *models.Season) (*models.Season, error) {
	return invoke[*models.Season](ctx, p, fnGetSeason, seed)
}

func (p *Provider) GetEntry(ctx context.Context, seed *models.Entry) (*models.Entry, error) {
	return invoke[*models.Entry](ctx, p, fnGetEntry, seed)
}

func (p *Provider) GetCollection(ctx context.Context, seed *models.Collection) (*models.Collection, error) {
	return invoke[*models.Collection](ctx, p, fnGetCollection, seed)
}

func (p *Provider) GetPeople(ctx context.Context, seed *models.Person) (*models.Person, error) {
	return invoke[*models.Person](ctx, p, fnGetPeople, seed)
}

func (p *Provider) SearchShows(ctx context.Context, query string) ([]*models.Show, error) {
	return invoke[[]*models.Show](ctx, p, fnSearchShows, query)
}

func (p *Provider) SearchCollections(ctx context.Context, query string) ([]*models.Collection, error) {
	return invoke[[]*models.Collection](ctx, p, fnSearchCollections, query)
}

func (p *Provider) SearchPeople(ctx context.Context, query string) ([]*models.Person, error) {
	return invoke[[]*models.Person](ctx, p, fnSearchPeople, query)
}

// invoke calls a plugin function with arg and decodes its return value into T. Values
// cross the VM boundary as JSON, so scripts see the same field names as the API.
// A script returning null or undefined means no match.
func invoke[T any](ctx context.Context, p *Provider, name string, arg interface{}) (T, error) {
	var out T

	fn, ok := p.functions[name]
	if !ok {
		return out, metadata.ErrUnsupported
	}

	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		return out, errors.WithStack(ctx.Err())
	}
	defer func() { <-p.sem }()

	p.ctx = ctx
	interrupted := make(chan struct{})
	stop := context.AfterFunc(ctx, func() {
		p.vm.Interrupt(ctx.Err())
		close(interrupted)
	})
	defer func() {
		if !stop() {
			<-interrupted
		}
		p.vm.ClearInterrupt()
		p.ctx = context.Background()
	}()

	jsArg, err := toJS(p.vm, arg)
	if err != nil {
		return out, err
	}

	result, err := fn(goja.Undefined(), jsArg)
	if err != nil {
		var interruptErr *goja.InterruptedError
		if errors.As(err, &interruptErr) && ctx.Err() != nil {
			return out, errors.Wrapf(ctx.Err(), "plugin.%s interrupted", name)
		}
		return out, errors.Wrapf(err, "plugin.%s failed", name)
	}

	result, err = awaitPromise(result)
	if err != nil {
		return out, errors.Wrapf(err, "plugin.%s failed", name)
	}
	if result == nil || goja.IsUndefined(result) || goja.IsNull(result) {
		return out, nil
	}

	data, err := json.Marshal(result.Export())
	if err != nil {
		return out, errors.Wrapf(err, "plugin.%s returned a value that is not JSON", name)
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, errors.Wrapf(err, "plugin.%s returned an invalid %T", name, out)
	}
	return out, nil
}

// toJS converts v to a plain JS value through its JSON form.
func toJS(vm *goja.Runtime, v interface{}) (goja.Value, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	var plain interface{}
	if err := json.Unmarshal(data, &plain); err != nil {
		return nil, errors.WithStack(err)
	}
	return vm.ToValue(plain), nil
}

// awaitPromise unwraps a settled promise. Scripts have no event loop, so a promise
// that is still pending is an error.
func awaitPromise(v goja.Value) (goja.Value, error) {
	if v == nil {
		return v, nil
	}
	promise, ok := v.Export().(*goja.Promise)
	if !ok {
		return v, nil
	}
	switch promise.State() {
	case goja.PromiseStateFulfilled:
		return promise.Result(), nil
	case goja.PromiseStateRejected:
		return nil, errors.Errorf("promise rejected: %v", promise.Result())
	}
	return nil, errors.New("promise did not settle")
}
