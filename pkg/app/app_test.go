package app_test

import (
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/quillhealthco/keepsake/pkg/app"
	"github.com/quillhealthco/keepsake/pkg/config"
	"github.com/quillhealthco/keepsake/pkg/logger"
)

var _ = Describe("App", func() {
	var (
		ctx    context.Context
		tmpDir string
		cfg    *config.Config
	)

	BeforeEach(func() {
		ctx = context.Background()

		var err error
		tmpDir, err = os.MkdirTemp("", "app-test-*")
		Expect(err).NotTo(HaveOccurred())

		cfg = config.NewDefaultConfig()
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	It("wires an in-memory runtime", func() {
		cfg.Storage.Driver = "memory"

		a, err := app.New(ctx, cfg, tmpDir, logger.New())
		Expect(err).NotTo(HaveOccurred())
		defer a.Close()

		Expect(a.Store).NotTo(BeNil())
		Expect(a.Engine).NotTo(BeNil())
		Expect(a.Summarizer).NotTo(BeNil())
	})

	It("creates the sqlite database inside the config dir by default", func() {
		cfg.Storage.Driver = "sqlite"

		a, err := app.New(ctx, cfg, tmpDir, logger.New())
		Expect(err).NotTo(HaveOccurred())
		defer a.Close()

		_, err = os.Stat(filepath.Join(tmpDir, "keepsake.db"))
		Expect(err).NotTo(HaveOccurred())
	})

	It("honors an explicit sqlite path", func() {
		cfg.Storage.Driver = "sqlite"
		cfg.Storage.SQLitePath = filepath.Join(tmpDir, "custom.db")

		a, err := app.New(ctx, cfg, tmpDir, logger.New())
		Expect(err).NotTo(HaveOccurred())
		defer a.Close()

		_, err = os.Stat(cfg.Storage.SQLitePath)
		Expect(err).NotTo(HaveOccurred())
	})

	It("requires a DSN for the postgres driver", func() {
		cfg.Storage.Driver = "postgres"

		_, err := app.New(ctx, cfg, tmpDir, logger.New())
		Expect(err).To(MatchError(ContainSubstring("postgres_dsn")))
	})

	It("rejects an unknown driver", func() {
		cfg.Storage.Driver = "cassette"

		_, err := app.New(ctx, cfg, tmpDir, logger.New())
		Expect(err).To(MatchError(ContainSubstring("unknown storage driver")))
	})
})
