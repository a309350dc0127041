package main

import (
	"context"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/comalice/assetstate"
	"github.com/comalice/assetstate/manifest"
	"github.com/comalice/assetstate/realtime"
)

// AppState is the demo's screen state.
type AppState int

const (
	Boot AppState = iota
	Splash
	MainMenu
	InGame
)

func (s AppState) String() string {
	switch s {
	case Boot:
		return "Boot"
	case Splash:
		return "Splash"
	case MainMenu:
		return "MainMenu"
	case InGame:
		return "InGame"
	default:
		return fmt.Sprintf("AppState(%d)", int(s))
	}
}

// parseAppState maps manifest state names onto AppState.
func parseAppState(name string) (AppState, error) {
	for s := Boot; s <= InGame; s++ {
		if s.String() == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unrecognised app state %q", name)
}

// firstState picks the state scheduled at startup. Only screens with
// assets can be jumped to.
func firstState(name string) (AppState, error) {
	switch name {
	case "", "Splash":
		return Splash, nil
	case "MainMenu":
		return MainMenu, nil
	default:
		return 0, fmt.Errorf("unrecognised app state %q", name)
	}
}

//go:embed manifest.yaml
var defaultManifest string

const (
	splashDuration = time.Second
	menuIdle       = 2 * time.Second
)

// installScreens loads the bundle manifest and adds the per-screen systems:
// the splash countdown moves on to the main menu, and the main menu
// presses "play" after a short idle period.
func installScreens(app *assetstate.App[AppState], m *manifest.Manifest) error {
	schema, err := manifest.Schema(m, parseAppState)
	if err != nil {
		return err
	}
	if err := app.Install(schema); err != nil {
		return err
	}

	log := app.Logger()
	machine := app.Machine()
	for s := Boot; s <= InGame; s++ {
		machine.OnEnter(s, func(_ context.Context, from, to AppState) error {
			log.Info("entered state", zap.Stringer("from", from), zap.Stringer("to", to))
			return nil
		})
	}

	countdown := assetstate.NewTimer(splashDuration)
	machine.OnEnter(Splash, func(context.Context, AppState, AppState) error {
		countdown.Reset()
		return nil
	})
	app.AddStateSystem("splash countdown", Splash, func(_ context.Context, c *assetstate.Context[AppState]) error {
		if countdown.Tick(c.Delta()).JustFinished() {
			c.RequestTransition(MainMenu)
		}
		return nil
	})

	idle := assetstate.NewTimer(menuIdle)
	machine.OnEnter(MainMenu, func(context.Context, AppState, AppState) error {
		idle.Reset()
		return nil
	})
	app.AddStateSystem("main menu", MainMenu, func(_ context.Context, c *assetstate.Context[AppState]) error {
		inst, ok := c.Bundle("main_menu")
		if !ok {
			return nil
		}
		if idle.Tick(c.Delta()).JustFinished() {
			banner, _ := inst.Handle("banner")
			c.Logger().Info("play pressed", zap.Uint64("banner", uint64(banner)))
			c.RequestTransition(InGame)
		}
		return nil
	})
	return nil
}

func loadManifest(path string) (*manifest.Manifest, error) {
	if path == "" {
		return manifest.Decode(strings.NewReader(defaultManifest), manifest.YAML)
	}
	return manifest.Load(path)
}

// reinstall applies a reloaded manifest. New bundles and bindings take
// effect. A manifest that changes an existing bundle (assets or
// cleanup_delay) or binding is rejected whole.
func reinstall(m *manifest.Manifest) realtime.CommandFunc[AppState] {
	return func(_ context.Context, app *assetstate.App[AppState]) error {
		schema, err := manifest.Schema(m, parseAppState)
		if err != nil {
			return err
		}
		return app.Install(schema)
	}
}
