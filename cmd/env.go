package cmd

import (
	"fmt"

	"github.com/rexolve-ai/rexolve/internal/chat"
	"github.com/rexolve-ai/rexolve/internal/config"
	"github.com/rexolve-ai/rexolve/internal/logging"
	"github.com/rexolve-ai/rexolve/internal/session"
	"go.uber.org/zap"
)

// env is everything a command needs once config is loaded.
type env struct {
	cfg   *config.Config
	log   *zap.Logger
	store session.Store
	repo  *session.Repository
}

// openEnv loads config and opens the session store. Commands that talk
// to a backend additionally call newManager.
func openEnv() (*env, error) {
	cfg, err := initConfig()
	if err != nil {
		return nil, err
	}

	log, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}

	store, err := openStore(cfg.Storage, log)
	if err != nil {
		log.Sync()
		return nil, err
	}
	log.Debug("store opened", zap.String("driver", cfg.Storage.Driver))

	return &env{
		cfg:   cfg,
		log:   log,
		store: store,
		repo:  session.NewRepository(store, session.WithLogger(log)),
	}, nil
}

func (rt *env) newManager() (*chat.Manager, string, error) {
	answerer, err := buildAnswerer(rt.cfg)
	if err != nil {
		return nil, "", err
	}
	opts := []chat.Option{
		chat.WithLogger(rt.log),
		chat.WithTimeout(rt.cfg.RequestTimeout),
	}
	if rec := buildRecognizer(rt.cfg); rec != nil {
		opts = append(opts, chat.WithRecognizer(rec))
	}
	return chat.NewManager(rt.repo, answerer, opts...), answerer.Name(), nil
}

func (rt *env) Close() {
	if err := rt.store.Close(); err != nil {
		rt.log.Warn("closing store", zap.Error(err))
	}
	rt.log.Sync()
}

func openStore(sc config.StorageConfig, log *zap.Logger) (session.Store, error) {
	switch sc.Driver {
	case config.DriverMemory:
		return session.NewMemoryStore(nil, log), nil
	case config.DriverFile:
		path := sc.Path
		if path == "" {
			p, err := session.DefaultFilePath()
			if err != nil {
				return nil, err
			}
			path = p
		}
		fs, err := session.NewFileStore(path, log)
		if err != nil {
			return nil, err
		}
		return fs, nil
	case config.DriverSQLite, "":
		path := sc.Path
		if path == "" {
			p, err := session.DefaultDBPath()
			if err != nil {
				return nil, err
			}
			path = p
		}
		db, err := session.NewSQLiteStore(path, log)
		if err != nil {
			return nil, err
		}
		return db, nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", sc.Driver)
}
