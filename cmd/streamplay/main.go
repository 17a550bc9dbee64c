// Command streamplay opens a single RTSP/RTMP URL and renders it in an
// ebitengine window, logging connection status and periodic pipeline stats
// to stdout: parse the URL from argv, wire a player, run a render loop,
// built against streamplay.Player's sink-based API.
package main

import (
	"fmt"
	"image/color"
	"os"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/audio"
	"github.com/kelseyhightower/envconfig"

	"github.com/ashlark/streamplay"
	"github.com/ashlark/streamplay/sinks/ebitenaudio"
	"github.com/ashlark/streamplay/sinks/rasterize"
)

type envConfig struct {
	VideoQueueCapacity   int `envconfig:"VIDEO_QUEUE_CAPACITY" default:"90"`
	AudioQueueCapacity   int `envconfig:"AUDIO_QUEUE_CAPACITY" default:"180"`
	ReconnectMaxAttempts int `envconfig:"RECONNECT_MAX_ATTEMPTS" default:"5"`
	ReconnectDelayMs     int `envconfig:"RECONNECT_DELAY_MS" default:"2000"`
	AudioSampleRate      int `envconfig:"AUDIO_SAMPLE_RATE" default:"48000"`
	AudioChannels        int `envconfig:"AUDIO_CHANNELS" default:"2"`
	WindowWidth          int `envconfig:"WINDOW_WIDTH" default:"1280"`
	WindowHeight         int `envconfig:"WINDOW_HEIGHT" default:"720"`
}

func main() {
	if len(os.Args) != 2 {
		fmt.Println("Usage: streamplay rtsp://<username>:<password>@<host>:<port>/stream")
		os.Exit(1)
	}
	url := os.Args[1]

	var cfg envConfig
	if err := envconfig.Process("STREAMPLAY", &cfg); err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	// The audio context's sample rate is fixed for the process; the
	// negotiated-per-session format (decoderContext.openStream) always
	// resamples into it via the sink's PreferredFormat.
	audio.NewContext(cfg.AudioSampleRate)
	audioSink, err := ebitenaudio.New(cfg.AudioSampleRate, cfg.AudioChannels)
	if err != nil {
		fmt.Fprintf(os.Stderr, "audio sink setup failed, continuing video-only: %v\n", err)
		audioSink = nil
	}

	frameSink := rasterize.New()
	status := &logStatusSink{}
	stats := &logStatsSink{}

	playerCfg := streamplay.NewConfig(
		streamplay.WithVideoQueueCapacity(cfg.VideoQueueCapacity),
		streamplay.WithAudioQueueCapacity(cfg.AudioQueueCapacity),
		streamplay.WithReconnectMaxAttempts(cfg.ReconnectMaxAttempts),
		streamplay.WithReconnectDelayMs(cfg.ReconnectDelayMs),
	)

	var sink streamplay.AudioSink
	if audioSink != nil {
		sink = audioSink
	}

	player := streamplay.NewPlayer(frameSink, status, stats, sink, playerCfg, nil)
	defer player.Close()

	if err := player.Start(url); err != nil {
		fmt.Fprintf(os.Stderr, "start failed: %v\n", err)
		os.Exit(1)
	}

	ebiten.SetWindowTitle("streamplay")
	ebiten.SetWindowSize(cfg.WindowWidth, cfg.WindowHeight)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)

	if err := ebiten.RunGame(&game{frames: frameSink}); err != nil {
		fmt.Fprintf(os.Stderr, "run failed: %v\n", err)
		os.Exit(1)
	}
}

type game struct {
	frames *rasterize.Sink
}

func (g *game) Update() error {
	if ebiten.IsKeyPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}
	return nil
}

func (g *game) Draw(screen *ebiten.Image) {
	screen.Fill(color.Black)
	g.frames.Draw(screen)
}

func (g *game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return outsideWidth, outsideHeight
}

type logStatusSink struct{}

func (s *logStatusSink) OnStatus(status streamplay.Status, err error) {
	if err != nil {
		fmt.Printf("status: %s (%v)\n", status, err)
		return
	}
	fmt.Printf("status: %s\n", status)
}

type logStatsSink struct{}

func (s *logStatsSink) OnStats(stats streamplay.PlayerStats) {
	fmt.Printf("stats: video=%d audio=%d dropped_v=%d dropped_a=%d bitrate=%.0fbps jitter=%.0fms reconnects=%d\n",
		stats.VideoQueueSize, stats.AudioQueueSize, stats.VideoDropped, stats.AudioDropped,
		stats.BitrateBps, stats.JitterMs, stats.ReconnectAttempt)
}
