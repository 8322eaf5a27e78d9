package container_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-controllers/framework/container"
)

// ── stub providers ────────────────────────────────────────────────────────────

type eagerProvider struct {
	container.BaseProvider
	registerCalled bool
	bootCalled     bool
}

func (p *eagerProvider) Register(app *container.Container) error {
	p.registerCalled = true
	app.Register("eager-svc", "eager")
	return nil
}

func (p *eagerProvider) Boot(*container.Container) error {
	p.bootCalled = true
	return nil
}

// declaringProvider declares a type and builds it when booted.
type declaringProvider struct {
	built *leaf
}

func (p *declaringProvider) Register(app *container.Container) error {
	return container.Declare(app, func(container.Args) (*leaf, error) { return &leaf{}, nil })
}

func (p *declaringProvider) Boot(app *container.Container) error {
	l, err := container.Build[*leaf](app)
	p.built = l
	return err
}

// brokenProvider declares a type depending on something never declared.
type brokenProvider struct {
	container.BaseProvider
}

func (p *brokenProvider) Register(app *container.Container) error {
	return container.Declare(app, func(container.Args) (*mid, error) { return &mid{}, nil },
		container.Class[*leaf](0))
}

type failingProvider struct {
	container.BaseProvider
}

func (p *failingProvider) Register(*container.Container) error { return errors.New("no config") }

// orderProvider records the order Boot runs in.
type orderProvider struct {
	container.BaseProvider
	name string
	log  *[]string
}

func (p *orderProvider) Register(*container.Container) error { return nil }

func (p *orderProvider) Boot(*container.Container) error {
	*p.log = append(*p.log, p.name)
	return nil
}

// ── ProviderRegistry ──────────────────────────────────────────────────────────

func TestProviderRegistry_RegisterCalledImmediately(t *testing.T) {
	c := newContainer(t)
	reg := container.NewProviderRegistry(c)

	p := &eagerProvider{}
	require.NoError(t, reg.Register(p))

	assert.True(t, p.registerCalled)
	assert.False(t, p.bootCalled, "Boot must wait for registry.Boot()")
	assert.Equal(t, "eager", c.Get("eager-svc"))
}

func TestProviderRegistry_BootCallsBoot(t *testing.T) {
	c := newContainer(t)
	reg := container.NewProviderRegistry(c)

	p := &eagerProvider{}
	require.NoError(t, reg.Register(p))
	require.NoError(t, reg.Boot())

	assert.True(t, p.bootCalled)
	assert.True(t, reg.Booted())
}

func TestProviderRegistry_BootIsIdempotent(t *testing.T) {
	c := newContainer(t)
	reg := container.NewProviderRegistry(c)

	var order []string
	require.NoError(t, reg.Register(&orderProvider{name: "a", log: &order}))
	require.NoError(t, reg.Boot())
	require.NoError(t, reg.Boot())

	assert.Equal(t, []string{"a"}, order)
}

func TestProviderRegistry_BootsInRegistrationOrder(t *testing.T) {
	c := newContainer(t)
	reg := container.NewProviderRegistry(c)

	var order []string
	for _, name := range []string{"config", "routing", "metrics"} {
		require.NoError(t, reg.Register(&orderProvider{name: name, log: &order}))
	}
	require.NoError(t, reg.Boot())

	assert.Equal(t, []string{"config", "routing", "metrics"}, order)
}

func TestProviderRegistry_DuplicateRegisterIsNoop(t *testing.T) {
	c := newContainer(t)
	reg := container.NewProviderRegistry(c)

	p := &eagerProvider{}
	require.NoError(t, reg.Register(p))
	require.NoError(t, reg.Register(p))

	assert.Len(t, reg.Providers(), 1)
}

func TestProviderRegistry_LateProviderBootedImmediately(t *testing.T) {
	c := newContainer(t)
	reg := container.NewProviderRegistry(c)
	require.NoError(t, reg.Boot())

	p := &eagerProvider{}
	require.NoError(t, reg.Register(p))

	assert.True(t, p.bootCalled)
}

func TestProviderRegistry_BootBuildsDeclaredTypes(t *testing.T) {
	c := newContainer(t)
	reg := container.NewProviderRegistry(c)

	p := &declaringProvider{}
	require.NoError(t, reg.Register(p))
	require.NoError(t, reg.Boot())

	assert.NotNil(t, p.built)
}

func TestProviderRegistry_RegisterErrorIsWrapped(t *testing.T) {
	c := newContainer(t)
	reg := container.NewProviderRegistry(c)

	err := reg.Register(&failingProvider{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failingProvider")
	assert.Contains(t, err.Error(), "no config")
	assert.Empty(t, reg.Providers())
}

func TestProviderRegistry_BootValidatesFirst(t *testing.T) {
	c := newContainer(t)
	reg := container.NewProviderRegistry(c)

	var order []string
	require.NoError(t, reg.Register(&brokenProvider{}))
	require.NoError(t, reg.Register(&orderProvider{name: "after", log: &order}))

	err := reg.Boot()
	assert.ErrorIs(t, err, container.ErrUnresolvedDependency)
	assert.False(t, reg.Booted())
	assert.Empty(t, order, "no provider boots when validation fails")
}

// flakyProvider fails its first Register.
type flakyProvider struct {
	container.BaseProvider
	attempts int
}

func (p *flakyProvider) Register(app *container.Container) error {
	p.attempts++
	if p.attempts == 1 {
		return errors.New("not yet")
	}
	app.Register("flaky", "ok")
	return nil
}

// mailerProvider is loaded the first time "mailer" or "mailer.from" is missing.
type mailerProvider struct {
	registers int
	boots     int
	fail      bool
}

func (p *mailerProvider) Provides() []string { return []string{"mailer", "mailer.from"} }

func (p *mailerProvider) Register(app *container.Container) error {
	p.registers++
	if p.fail {
		return errors.New("smtp unreachable")
	}
	app.Register("mailer", "smtp://localhost")
	app.Register("mailer.from", "noreply@example.com")
	return nil
}

func (p *mailerProvider) Boot(*container.Container) error {
	p.boots++
	return nil
}

func TestProviderRegistry_FailedRegisterCanBeRetried(t *testing.T) {
	c := newContainer(t)
	reg := container.NewProviderRegistry(c)
	p := &flakyProvider{}

	require.Error(t, reg.Register(p))
	assert.Empty(t, reg.Providers())

	require.NoError(t, reg.Register(p))
	assert.Equal(t, 2, p.attempts)
	assert.Equal(t, "ok", c.Get("flaky"))
	assert.Len(t, reg.Providers(), 1)

	require.NoError(t, reg.Register(p))
	assert.Equal(t, 2, p.attempts, "a successful provider is not registered twice")
}

func TestProviderRegistry_DeferredLoadsOnFirstMiss(t *testing.T) {
	c := newContainer(t)
	reg := container.NewProviderRegistry(c)
	p := &mailerProvider{}

	require.NoError(t, reg.Register(p))
	assert.Zero(t, p.registers, "deferred providers wait for a lookup")
	assert.Empty(t, reg.Providers())
	assert.Equal(t, []string{"mailer", "mailer.from"}, reg.Deferred())

	require.NoError(t, reg.Boot())
	assert.Zero(t, p.boots)

	assert.Equal(t, "smtp://localhost", c.Get("mailer"))
	assert.Equal(t, "noreply@example.com", c.Get("mailer.from"))
	assert.Equal(t, 1, p.registers)
	assert.Equal(t, 1, p.boots, "loaded after boot, so booted at once")
	assert.Empty(t, reg.Deferred())
	assert.Len(t, reg.Providers(), 1)
}

func TestProviderRegistry_DeferredLoadedDuringBuild(t *testing.T) {
	c := newContainer(t)
	reg := container.NewProviderRegistry(c)
	p := &mailerProvider{}
	require.NoError(t, reg.Register(p))
	require.NoError(t, container.Declare(c, func(a container.Args) (*database, error) {
		return &database{url: container.Arg[string](a, 0)}, nil
	}, container.Token(0, "mailer")))

	require.NoError(t, reg.Boot())
	db := container.MustBuild[*database](c)
	assert.Equal(t, "smtp://localhost", db.url)
	assert.Equal(t, 1, p.registers)
}

func TestProviderRegistry_DeferredNotLoadedBeforeBoot(t *testing.T) {
	c := newContainer(t)
	reg := container.NewProviderRegistry(c)
	p := &mailerProvider{}
	require.NoError(t, reg.Register(p))

	assert.Equal(t, "smtp://localhost", c.Get("mailer"))
	assert.Equal(t, 1, p.registers)
	assert.Zero(t, p.boots, "booted together with the others")

	require.NoError(t, reg.Boot())
	assert.Equal(t, 1, p.boots)
}

func TestProviderRegistry_DeferredFailureLeavesTokenMissing(t *testing.T) {
	c := newContainer(t)
	reg := container.NewProviderRegistry(c)
	p := &mailerProvider{fail: true}
	require.NoError(t, reg.Register(p))

	assert.Nil(t, c.Get("mailer"))
	assert.Nil(t, c.Get("mailer.from"))
	assert.Equal(t, 1, p.registers, "a failed deferred provider is not retried")
	assert.Empty(t, reg.Providers())
}
