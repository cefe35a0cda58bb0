package main

import (
	"time"

	"github.com/rs/zerolog"

	"vynel/internal/config"
	"vynel/internal/manager"
	"vynel/internal/prefs"
	"vynel/internal/registry"
)

type prefStore interface {
	manager.Store
	Close() error
}

// buildManager wires registry, preferences and backends from cfg. The
// returned func releases the engines and the preference database.
func buildManager(cfg config.Config, log zerolog.Logger) (*manager.Manager, func(), error) {
	reg, err := registry.Build(cfg.Models, cfg.ModelsDir)
	if err != nil {
		log.Warn().Err(err).Str("dir", cfg.ModelsDir).Msg("models dir not scanned")
	}
	lookup := manager.RegistryLookup(reg)
	pub := manager.LogPublisher{Log: log}
	bc := cfg.Backends

	var backends []manager.Backend
	if !bc.Accelerated.Disabled {
		backends = append(backends, manager.NewAcceleratedBackend(manager.AcceleratedConfig{
			Models:      lookup,
			ContextSize: bc.Accelerated.ContextSize,
			GPULayers:   bc.Accelerated.GPULayers,
			Threads:     bc.Accelerated.Threads,
			KeepRepeats: bc.KeepRepeats,
			Logger:      &log,
		}))
	}
	llamaBin := bc.CPU.LlamaBin
	if llamaBin == "" {
		llamaBin = manager.DiscoverLlamaBin()
	}
	if !bc.CPU.Disabled {
		backends = append(backends, manager.NewCPUBackend(manager.CPUConfig{
			Spawn: manager.SpawnConfig{
				Bin:          llamaBin,
				Host:         bc.CPU.Host,
				PortStart:    bc.CPU.PortStart,
				PortEnd:      bc.CPU.PortEnd,
				CtxSize:      bc.CPU.ContextSize,
				Threads:      bc.CPU.Threads,
				ExtraArgs:    bc.CPU.ExtraArgs,
				ReadyTimeout: time.Duration(bc.CPU.ReadyTimeoutSec) * time.Second,
			},
			Models:      lookup,
			KeepRepeats: bc.KeepRepeats,
			Logger:      &log,
			Publisher:   pub,
		}))
	}
	if bc.Remote.Endpoint != "" {
		rb, err := manager.NewRemoteBackend(manager.RemoteConfig{
			Endpoint:    bc.Remote.Endpoint,
			Models:      lookup,
			Pull:        bc.Remote.Pull,
			KeepRepeats: bc.KeepRepeats,
			Logger:      &log,
		})
		if err != nil {
			return nil, nil, err
		}
		backends = append(backends, rb)
	}

	host := manager.LocalHost()
	if bc.Accelerated.Disabled {
		host.LlamaBuilt = false
	}
	probe := manager.CapabilityProbe{
		Host:   host,
		CPU:    !bc.CPU.Disabled && llamaBin != "",
		Remote: bc.Remote.Endpoint != "",
	}

	store := openPrefs(cfg.StatePath, log)
	m := manager.NewWithConfig(manager.ManagerConfig{
		Registry:     reg,
		DefaultModel: cfg.DefaultModel,
		Backends:     backends,
		Prober:       probe,
		Prefs:        store,
		Logger:       &log,
		Publisher:    pub,
	})
	cleanup := func() {
		if err := m.Close(); err != nil {
			log.Warn().Err(err).Msg("close backends")
		}
		_ = store.Close()
	}
	return m, cleanup, nil
}

// openPrefs falls back to an in-memory store so a read-only state dir
// never prevents startup.
func openPrefs(path string, log zerolog.Logger) prefStore {
	if path == "" {
		return prefs.NewMemoryStore()
	}
	s, err := prefs.OpenSQLite(path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("preferences not persisted")
		return prefs.NewMemoryStore()
	}
	return s
}
