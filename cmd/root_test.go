package cmd

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/spf13/cobra"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/gbytes"

	"github.com/meln5674/tinysite/pkg/site"
)

func setenv(key, value string) {
	old, had := os.LookupEnv(key)
	Expect(os.Setenv(key, value)).To(Succeed())
	DeferCleanup(func() {
		if had {
			os.Setenv(key, old)
		} else {
			os.Unsetenv(key)
		}
	})
}

func testCommand(args ...string) *cobra.Command {
	cmd := &cobra.Command{}
	cmd.Flags().String("listen", ":3000", "")
	cmd.Flags().String("views", "", "")
	cmd.Flags().String("public", "", "")
	cmd.Flags().String("edition", "users", "")
	cmd.Flags().String("about", "", "")
	Expect(cmd.Flags().Parse(args)).To(Succeed())
	return cmd
}

var portLine = regexp.MustCompile(`App now listening on port (\d+)\n`)

// start runs the site until the test finishes and returns its base URL.
func start(opts Options) string {
	ctx, cancel := context.WithCancel(context.Background())
	out := gbytes.NewBuffer()
	done := make(chan error, 1)
	go func() {
		defer GinkgoRecover()
		done <- run(ctx, out, opts)
	}()
	DeferCleanup(func() {
		cancel()
		Eventually(done, "5s").Should(Receive(BeNil()))
	})
	Eventually(out, "5s").Should(gbytes.Say(`App now listening on port \d+\n`))
	port := portLine.FindSubmatch(out.Contents())[1]
	return "http://127.0.0.1:" + string(port)
}

func get(url string) (int, string) {
	resp, err := http.Get(url)
	Expect(err).ToNot(HaveOccurred())
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	Expect(err).ToNot(HaveOccurred())
	return resp.StatusCode, string(body)
}

var _ = Describe("loadOptions", func() {
	It("should default to port 3000 and the users edition", func() {
		opts, err := loadOptions(testCommand())
		Expect(err).ToNot(HaveOccurred())
		Expect(opts).To(Equal(Options{Listen: ":3000", Edition: "users"}))
	})

	It("should read the environment", func() {
		setenv(EnvPrefix+"EDITION", "links")
		setenv(EnvPrefix+"ABOUT", "from env")
		opts, err := loadOptions(testCommand())
		Expect(err).ToNot(HaveOccurred())
		Expect(opts.Edition).To(Equal("links"))
		Expect(opts.About).To(Equal("from env"))
	})

	It("should prefer flags that were set", func() {
		setenv(EnvPrefix+"LISTEN", ":4000")
		setenv(EnvPrefix+"ABOUT", "from env")
		opts, err := loadOptions(testCommand("--listen", "127.0.0.1:5000"))
		Expect(err).ToNot(HaveOccurred())
		Expect(opts.Listen).To(Equal("127.0.0.1:5000"))
		Expect(opts.About).To(Equal("from env"))
	})
})

var _ = Describe("newServer", func() {
	It("should reject unknown editions", func() {
		_, err := newServer(Options{Edition: "sparkles"})
		Expect(err).To(MatchError(site.ErrUnknownEdition))
	})

	It("should reject a views path that is not a directory", func() {
		file := filepath.Join(GinkgoT().TempDir(), "views")
		Expect(os.WriteFile(file, nil, 0o644)).To(Succeed())
		_, err := newServer(Options{Edition: "users", Views: file})
		Expect(err).To(MatchError(ContainSubstring("not a directory")))
	})

	It("should reject a missing public directory", func() {
		_, err := newServer(Options{Edition: "users", Public: filepath.Join(GinkgoT().TempDir(), "missing")})
		Expect(err).To(HaveOccurred())
	})

	It("should not need a public directory for the greeting edition", func() {
		_, err := newServer(Options{Edition: "greeting", Public: filepath.Join(GinkgoT().TempDir(), "missing")})
		Expect(err).ToNot(HaveOccurred())
	})
})

var _ = Describe("run", func() {
	It("should serve the site after announcing the port", func() {
		url := start(Options{Listen: "127.0.0.1:0", Edition: "users"})

		code, body := get(url + "/")
		Expect(code).To(Equal(http.StatusOK))
		Expect(body).To(And(ContainSubstring("Home"), ContainSubstring("About"), ContainSubstring("Rick"), ContainSubstring("Morty"), ContainSubstring("Roy")))

		code, _ = get(url + "/about")
		Expect(code).To(Equal(http.StatusOK))

		code, _ = get(url + "/nonexistent-path")
		Expect(code).To(Equal(http.StatusNotFound))
	})

	It("should serve views and assets from disk", func() {
		dir := GinkgoT().TempDir()
		Expect(os.MkdirAll(filepath.Join(dir, "views"), 0o755)).To(Succeed())
		Expect(os.MkdirAll(filepath.Join(dir, "public"), 0o755)).To(Succeed())
		Expect(os.WriteFile(filepath.Join(dir, "views", "layout.html"), []byte(`{{define "layout"}}[{{block "content" .}}{{end}}]{{end}}`), 0o644)).To(Succeed())
		Expect(os.WriteFile(filepath.Join(dir, "views", "index.html"), []byte(`{{define "content"}}{{range .users}}{{.}},{{end}}{{end}}`), 0o644)).To(Succeed())
		Expect(os.WriteFile(filepath.Join(dir, "public", "hello.txt"), []byte("hello from disk"), 0o644)).To(Succeed())

		url := start(Options{
			Listen:  "127.0.0.1:0",
			Edition: "users",
			Views:   filepath.Join(dir, "views"),
			Public:  filepath.Join(dir, "public"),
		})

		code, body := get(url + "/")
		Expect(code).To(Equal(http.StatusOK))
		Expect(body).To(Equal("[Rick,Morty,Roy,]"))

		code, body = get(url + "/hello.txt")
		Expect(code).To(Equal(http.StatusOK))
		Expect(body).To(Equal("hello from disk"))

		code, _ = get(url + "/about")
		Expect(code).To(Equal(http.StatusInternalServerError))
	})

	It("should behave the same after a restart", func() {
		opts := Options{Listen: "127.0.0.1:0", Edition: "users"}
		var bodies [2]string
		for i := range bodies {
			ctx, cancel := context.WithCancel(context.Background())
			out := gbytes.NewBuffer()
			done := make(chan error, 1)
			go func() {
				defer GinkgoRecover()
				done <- run(ctx, out, opts)
			}()
			Eventually(out, "5s").Should(gbytes.Say(`App now listening on port \d+\n`))
			port := portLine.FindSubmatch(out.Contents())[1]
			_, bodies[i] = get("http://127.0.0.1:" + string(port) + "/")
			cancel()
			Eventually(done, "5s").Should(Receive(BeNil()))
		}
		Expect(bodies[1]).To(Equal(bodies[0]))
	})

	It("should fail when the address is taken", func() {
		url := start(Options{Listen: "127.0.0.1:0", Edition: "users"})
		taken := url[len("http://"):]
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := run(ctx, gbytes.NewBuffer(), Options{Listen: taken, Edition: "users"})
		Expect(err).To(MatchError(ContainSubstring("failed to listen")))
	})
})
