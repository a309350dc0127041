package assetstate_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/comalice/assetstate"
	"github.com/comalice/assetstate/testutil"
)

func TestExportDOT(t *testing.T) {
	app, mem := newScreensApp(t)
	completeBundle(mem, splashBundle)

	enter(t, app, Splash)
	app.RequestTransition(MainMenu)
	testutil.Step(t, app, dt, 1)

	dot := app.ExportDOT()
	assert.True(t, strings.HasPrefix(dot, "digraph AssetStates {"))
	assert.True(t, strings.HasSuffix(dot, "}\n"))
	assert.Contains(t, dot, `"state:Splash" [label="Splash", style="rounded,bold"];`)
	assert.Contains(t, dot, `"state:MainMenu" [label="MainMenu"];`)
	assert.Contains(t, dot, `"state:Splash" -> "bundle:splash" [label="requires"];`)
	assert.Contains(t, dot, `"bundle:splash" [label="splash\nready", shape=folder, style="rounded,filled", fillcolor="#d9f2d9"];`)
	assert.Contains(t, dot, `"bundle:main_menu" [label="main_menu\nloading", shape=folder, style="rounded,dashed"];`)
	assert.Contains(t, dot, `"bundle:splash" -> "asset:splash:images/icon.png" [label="image"];`)

	assert.Equal(t, dot, app.ExportDOT(), "output is deterministic")

	completeBundle(mem, menuBundle)
	testutil.Step(t, app, dt, 1)
	assert.Contains(t, app.ExportDOT(), `"bundle:splash" [label="splash\nready\ncleanup armed"`)
}

func TestExportDOTEmpty(t *testing.T) {
	app, err := assetstate.NewApp[AppState](assetstate.NewMachine(Boot), newNopLoader())
	assert.NoError(t, err)
	dot := app.ExportDOT()
	assert.NotContains(t, dot, "->")
}

type nopLoader struct{}

func newNopLoader() nopLoader { return nopLoader{} }

func (nopLoader) Load(assetstate.AssetRef) assetstate.Handle { return 1 }

func (nopLoader) Status(assetstate.Handle) assetstate.LoadStatus { return assetstate.Pending }
