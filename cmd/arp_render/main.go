package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	arpeggio "github.com/cbegin/arpeggio-go"
	"github.com/cbegin/arpeggio-go/internal/monitor"
	"github.com/cbegin/arpeggio-go/internal/scenario"
)

func main() {
	var (
		path      = flag.String("file", "", "path to a scenario YAML file")
		wavPath   = flag.String("wav", "", "also render the monitor synth to this WAV file")
		blockSize = flag.Int("block", 0, "override the scenario block size")
		quiet     = flag.Bool("quiet", false, "do not print the event list")
	)
	flag.Parse()

	if *path == "" && flag.NArg() > 0 {
		*path = flag.Arg(0)
	}
	if *path == "" {
		log.Fatal("usage: arp_render [-wav out.wav] [-block n] scenario.yaml")
	}

	sc, err := scenario.Load(*path)
	if err != nil {
		log.Fatal(err)
	}
	if *blockSize > 0 {
		sc.BlockSize = *blockSize
		if err := sc.Validate(); err != nil {
			log.Fatal(err)
		}
	}

	events, err := arpeggio.RenderEvents(sc)
	if err != nil {
		log.Fatal(err)
	}
	if !*quiet {
		if sc.Name != "" {
			fmt.Printf("# %s\n", sc.Name)
		}
		for _, ev := range events {
			fmt.Println(ev.String())
		}
	}
	fmt.Fprintf(os.Stderr, "%d events over %d frames\n", len(events), sc.Frames())

	if *wavPath == "" {
		return
	}
	samples, err := arpeggio.RenderAudio(sc, monitor.DefaultParams())
	if err != nil {
		log.Fatal(err)
	}
	wav := arpeggio.EncodeWAVFloat32LE(samples, sc.SampleRate, 2)
	if err := os.WriteFile(*wavPath, wav, 0o644); err != nil {
		log.Fatal(err)
	}
	fmt.Fprintf(os.Stderr, "wrote %s\n", *wavPath)
}
