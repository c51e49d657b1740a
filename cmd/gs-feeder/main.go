package main

import (
	"flag"
	"log"
	"time"

	"GeoStream/internal/config"
	"GeoStream/internal/datagen"
	"GeoStream/internal/source"

	"github.com/google/uuid"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to the configuration file")
	requestID := flag.String("request", "", "Request id to publish under (generated when empty)")
	kind := flag.String("kind", "elevation", "Scenario: elevation, temperature, pressure, noise, sine_wave")
	points := flag.Int("points", 100000, "Total number of points to generate")
	chunkSize := flag.Int("chunk", 10000, "Points per chunk")
	interval := flag.Duration("interval", 50*time.Millisecond, "Delay between chunks")
	latMin := flag.Float64("lat-min", 40.0, "Southern bound")
	latMax := flag.Float64("lat-max", 41.0, "Northern bound")
	lngMin := flag.Float64("lng-min", -74.5, "Western bound")
	lngMax := flag.Float64("lng-max", -73.5, "Eastern bound")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	id := *requestID
	if id == "" {
		id = uuid.NewString()
	}

	pub, err := source.NewPublisher(cfg.NATS)
	if err != nil {
		log.Fatalf("Failed to create publisher: %v", err)
	}
	defer pub.Close()

	bounds := datagen.Bounds{LatMin: *latMin, LatMax: *latMax, LngMin: *lngMin, LngMax: *lngMax}
	gen := datagen.New(*kind, time.Now().UnixNano())

	log.Printf("Generating %d %s points in %d-point chunks for request %s...", *points, *kind, *chunkSize, id)
	chunks := gen.Chunks(bounds, *points, *chunkSize)

	published := 0
	for _, chunk := range chunks {
		if err := pub.PublishChunk(id, chunk); err != nil {
			log.Printf("Error publishing chunk %d: %v", chunk.Seq, err)
			if perr := pub.PublishError(id, err.Error()); perr != nil {
				log.Printf("Error publishing error marker: %v", perr)
			}
			return
		}
		published += len(chunk.Points)
		if (*interval) > 0 {
			time.Sleep(*interval)
		}
	}

	if err := pub.PublishEnd(id); err != nil {
		log.Fatalf("Failed to publish end-of-stream: %v", err)
	}
	log.Printf("Published %d points in %d chunks for request %s.", published, len(chunks), id)
}
