package sink

import (
	"log"

	"GeoStream/internal/config"
	"GeoStream/internal/model"
)

// NewWriters builds every enabled writer from the config. Misconfigured
// writers are logged and skipped rather than failing startup, so a missing
// ClickHouse never blocks the pipeline itself.
func NewWriters(defs []config.WriterDef) []model.Writer {
	writers := make([]model.Writer, 0, len(defs))
	for _, def := range defs {
		if !def.Enabled {
			continue
		}
		switch def.Type {
		case "gob":
			writers = append(writers, NewGobWriter(def.Gob.RootPath))
		case "text":
			writers = append(writers, NewTextWriter(def.Text.Path))
		case "clickhouse":
			w, err := NewClickHouseWriter(def.ClickHouse)
			if err != nil {
				log.Printf("Warning: failed to create writer type '%s': %v, skipping.", def.Type, err)
				continue
			}
			writers = append(writers, w)
		default:
			log.Printf("Warning: unknown writer type '%s' in config, skipping.", def.Type)
		}
	}
	return writers
}
