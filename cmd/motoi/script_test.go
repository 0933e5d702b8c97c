// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"os"
	"testing"

	"github.com/rogpeppe/go-internal/testscript"

	"github.com/motoi/motoi/pkg/bundle"
)

func TestMain(m *testing.M) {
	testscript.Main(m, map[string]func(){
		"motoi": func() {
			os.Exit(Execute())
		},
	})
}

// TestCLI runs the scripts in testdata/script against the motoi binary.
func TestCLI(t *testing.T) {
	t.Parallel()

	testscript.Run(t, testscript.Params{
		Dir: "testdata/script",
		Setup: func(env *testscript.Env) error {
			env.Setenv("XDG_CONFIG_HOME", env.WorkDir+"/.config")
			env.Setenv("NO_COLOR", "1")
			return nil
		},
		Cmds: map[string]func(ts *testscript.TestScript, neg bool, args []string){
			"mkmarc": cmdMkmarc,
		},
	})
}

// cmdMkmarc packs a directory into a plug-in archive:
//
//	mkmarc <dir> <archive>
func cmdMkmarc(ts *testscript.TestScript, neg bool, args []string) {
	if neg {
		ts.Fatalf("unsupported: ! mkmarc")
	}
	if len(args) != 2 {
		ts.Fatalf("usage: mkmarc <dir> <archive>")
	}
	ts.Check(bundle.Pack(ts.MkAbs(args[0]), ts.MkAbs(args[1])))
}
