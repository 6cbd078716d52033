package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

const testNZB = `<?xml version="1.0" encoding="UTF-8"?>
<nzb xmlns="http://www.newzbin.com/DTD/2003/nzb"><file subject="dune"></file></nzb>`

// testEnv is a config file plus the folders it points at.
type testEnv struct {
	configPath string
	nzbFolder  string
	strmFolder string
}

func newTestEnv(t *testing.T, extra ...string) *testEnv {
	t.Helper()
	dir := t.TempDir()
	env := &testEnv{
		configPath: filepath.Join(dir, "config.toml"),
		nzbFolder:  filepath.Join(dir, "nzb"),
		strmFolder: filepath.Join(dir, "strm"),
	}
	require.NoError(t, os.Mkdir(env.nzbFolder, 0755))
	require.NoError(t, os.Mkdir(env.strmFolder, 0755))

	content := fmt.Sprintf(`
[server]
log_level = "error"

[database]
path = %q

[decision]
enable_completed_download_handling = true

[quality]
default = "hd"

[quality.profiles.hd]
qualities = ["HDTV-720p", "WEBDL-720p", "WEBDL-1080p", "Bluray-1080p"]
cutoff = "WEBDL-1080p"

[quality.profiles.hd.formats]
x265 = 10

[[custom_formats]]
name = "x265"
patterns = ['\bx265\b']

[downloaders.drop]
type = "nzbdrop"
nzb_folder = %q
strm_folder = %q
`, filepath.Join(dir, "fetcharr.db"), env.nzbFolder, env.strmFolder)
	for _, e := range extra {
		content += "\n" + e
	}
	require.NoError(t, os.WriteFile(env.configPath, []byte(content), 0644))
	return env
}

// run executes the CLI against the env's config and returns stdout.
func (e *testEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return runCLI(t, append([]string{"--config", e.configPath}, args...)...)
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

// resetFlags restores every flag to its default. Commands are package
// globals, so values would otherwise leak between tests.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// indexerServer answers Newznab searches with the given titles; each
// release downloads from nzbURL.
func indexerServer(t *testing.T, nzbURL string, titles ...string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `<?xml version="1.0" encoding="UTF-8"?><rss version="2.0"><channel>`)
		for i, title := range titles {
			fmt.Fprintf(w, `<item><title>%s</title><guid>guid-%d</guid><link>%s/get</link><size>%d</size></item>`,
				title, i, nzbURL, 4<<30)
		}
		fmt.Fprint(w, `</channel></rss>`)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// nzbServer serves testNZB at /get.
func nzbServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/get" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/x-nzb")
		_, _ = w.Write([]byte(testNZB))
	}))
	t.Cleanup(srv.Close)
	return srv
}
