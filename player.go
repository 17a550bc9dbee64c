package streamplay

import (
	"sync"
	"sync/atomic"
	"time"
)

// lifecycleState linearizes Start/Stop entry. Concurrent Start/Stop calls
// race on a single atomic transition rather than a quick-exit check plus a
// separate in-progress flag; we use atomic.CompareAndSwap on this enum so
// only one caller ever wins the right to launch a shutdown.
type lifecycleState int32

const (
	stateIdle lifecycleState = iota
	stateRunning
	stateStopping
)

// Player is the single entity the outside world talks to. It owns the two
// packet queues, the decoder context, the reconnect controller, the audio
// write pump, and an owner goroutine, started by NewPlayer, that hosts the
// stats timer, the audio-write timer, and audio-sink teardown — so all of
// these run on that one goroutine.
type Player struct {
	cfg          Config
	newInput     func(url string) (InputStream, error)
	frameSink    FrameSink
	statusSink   StatusSink
	statsSink    StatsSink
	audioSink    AudioSink

	videoQueue *PacketQueue
	audioQueue *PacketQueue
	decoder    *decoderContext
	reconnect  *reconnectController
	pump       *audioWritePump

	running       atomic.Bool
	stopRequested atomic.Bool
	state         atomic.Int32 // lifecycleState

	mu           sync.Mutex
	shutdownDone chan struct{}
	wg           sync.WaitGroup

	videoFrameDurationNs atomic.Int64
	audioFrameDurationNs atomic.Int64
	bitrateBps           atomic.Uint64

	ownerTasks chan func()
	ownerQuit  chan struct{}
}

// NewPlayer constructs a Player against the given sinks. audioSink may be
// nil, in which case every session plays video-only. newInput defaults to
// NewReisenInputStream when nil; tests inject a fake to drive the pipeline
// without a real network/codec dependency.
func NewPlayer(frameSink FrameSink, statusSink StatusSink, statsSink StatsSink, audioSink AudioSink, cfg Config, newInput func(string) (InputStream, error)) *Player {
	if newInput == nil {
		newInput = func(url string) (InputStream, error) { return NewReisenInputStream(url) }
	}
	p := &Player{
		cfg:        cfg,
		newInput:   newInput,
		frameSink:  frameSink,
		statusSink: statusSink,
		statsSink:  statsSink,
		audioSink:  audioSink,
		decoder:    &decoderContext{},
		reconnect:  newReconnectController(),
		pump:       newAudioWritePump(audioSink),
		ownerTasks: make(chan func()),
		ownerQuit:  make(chan struct{}),
	}
	p.reconnect.setMaxAttempts(cfg.ReconnectMaxAttempts)
	p.reconnect.setDelayMs(cfg.ReconnectDelayMs)
	p.videoQueue = NewPacketQueue(cfg.VideoQueueCapacity, DropOldest)
	p.audioQueue = NewPacketQueue(cfg.AudioQueueCapacity, Block)
	go p.ownerLoop()
	return p
}

// ownerLoop hosts the stats timer, the audio-write timer, and any
// dispatch()-marshaled task (audio sink teardown) for the Player's entire
// lifetime. It is the single "owner thread" every thread-affine operation
// runs on.
func (p *Player) ownerLoop() {
	statsInterval := p.cfg.StatsInterval
	if statsInterval <= 0 {
		statsInterval = 400 * time.Millisecond
	}
	pumpInterval := p.cfg.AudioPumpInterval
	if pumpInterval <= 0 {
		pumpInterval = 20 * time.Millisecond
	}
	statsTicker := time.NewTicker(statsInterval)
	pumpTicker := time.NewTicker(pumpInterval)
	defer statsTicker.Stop()
	defer pumpTicker.Stop()

	for {
		select {
		case <-p.ownerQuit:
			return
		case task := <-p.ownerTasks:
			task()
		case <-statsTicker.C:
			p.publishStats()
		case <-pumpTicker.C:
			p.pump.tick()
		}
	}
}

// dispatch marshals fn onto the owner thread and blocks until it completes.
func (p *Player) dispatch(fn func()) {
	done := make(chan struct{})
	select {
	case p.ownerTasks <- func() { fn(); close(done) }:
		<-done
	case <-p.ownerQuit:
	}
}

// Start begins a new session against url, first stopping (and waiting for)
// any session already in flight.
func (p *Player) Start(url string) error {
	if url == "" {
		return ErrEmptyURL
	}
	p.stopAndWait()

	p.videoQueue.Clear()
	p.audioQueue.Clear()
	p.videoQueue.Open()
	p.audioQueue.Open()
	p.videoQueue.ResetDroppedCount()
	p.audioQueue.ResetDroppedCount()
	p.reconnect.reset()
	storeBitrate(&p.bitrateBps, 0)

	p.running.Store(true)
	p.stopRequested.Store(false)
	p.state.Store(int32(stateRunning))
	p.onStatus(StatusConnecting, nil)

	d := &demuxer{
		openInput:     func() (InputStream, error) { return p.newInput(url) },
		videoQueue:    p.videoQueue,
		audioQueue:    p.audioQueue,
		decoder:       p.decoder,
		reconnect:     p.reconnect,
		audioSink:     p.audioSink,
		running:       &p.running,
		stopRequested: &p.stopRequested,
		bitrateBps:    &p.bitrateBps,
		onStatus:      p.onStatus,
		onError:       p.onError,
		onOpened: func(videoFrameDuration, audioFrameDuration time.Duration) {
			p.videoFrameDurationNs.Store(int64(videoFrameDuration))
			p.audioFrameDurationNs.Store(int64(audioFrameDuration))
		},
	}

	p.wg.Add(3)
	demuxDone := make(chan struct{})
	go func() {
		defer p.wg.Done()
		defer close(demuxDone)
		d.run()
	}()
	go func() {
		defer p.wg.Done()
		(&videoStage{queue: p.videoQueue, decoder: p.decoder, sink: p.frameSink, running: &p.running}).run()
	}()
	go func() {
		defer p.wg.Done()
		(&audioStage{queue: p.audioQueue, decoder: p.decoder, pump: p.pump, running: &p.running}).run()
	}()

	go func() {
		<-demuxDone
		p.maybeSelfStop()
	}()

	return nil
}

// Stop requests shutdown of the current session, if any, and returns
// immediately: the shutdown itself runs on a background goroutine so a
// caller on its own "owner"/UI thread never blocks on thread-join.
func (p *Player) Stop() {
	p.triggerStop(false)
}

// stopAndWait is Start's internal helper: it requests shutdown (if needed)
// of any existing session and blocks until it completes.
func (p *Player) stopAndWait() {
	p.triggerStop(true)
}

// triggerStop is the CAS-linearized entry point Stop/stopAndWait/
// maybeSelfStop funnel through. Only the caller that wins the
// stateRunning→stateStopping transition launches shutdownAsync; every other
// caller (including a racing second Stop() call) just optionally waits on
// the shared done channel.
func (p *Player) triggerStop(wait bool) {
	for {
		cur := lifecycleState(p.state.Load())
		switch cur {
		case stateIdle:
			return
		case stateStopping:
			if wait {
				p.waitForShutdown()
			}
			return
		case stateRunning:
			if p.state.CompareAndSwap(int32(stateRunning), int32(stateStopping)) {
				done := make(chan struct{})
				p.mu.Lock()
				p.shutdownDone = done
				p.mu.Unlock()
				go p.shutdownAsync(done)
				if wait {
					<-done
				}
				return
			}
			// Lost the CAS race to another caller; loop and re-check.
		}
	}
}

// maybeSelfStop is invoked whenever the demuxer goroutine exits. It acts only
// while the session is still stateRunning, i.e. when the demuxer ended on its
// own (retry budget exhausted) rather than via an external Stop() call. It
// triggers the same shutdown path a caller-initiated Stop() would, so
// teardown is always performed exactly once from exactly one place.
func (p *Player) maybeSelfStop() {
	if p.state.CompareAndSwap(int32(stateRunning), int32(stateStopping)) {
		done := make(chan struct{})
		p.mu.Lock()
		p.shutdownDone = done
		p.mu.Unlock()
		go p.shutdownAsync(done)
	}
}

func (p *Player) waitForShutdown() {
	p.mu.Lock()
	done := p.shutdownDone
	p.mu.Unlock()
	if done != nil {
		<-done
	}
}

// shutdownAsync performs the actual teardown: flip flags, close both
// queues (unblocking every Pop/Push), join the three
// worker threads, drain the queues, clear the pending-audio queue, zero the
// bitrate, tear down the audio sink on the owner thread, emit "Stopped",
// and clear the in-progress state.
func (p *Player) shutdownAsync(done chan struct{}) {
	p.running.Store(false)
	p.stopRequested.Store(true)

	p.videoQueue.Close()
	p.audioQueue.Close()

	p.wg.Wait()

	p.videoQueue.Clear()
	p.audioQueue.Clear()
	p.decoder.closeStream()
	p.pump.reset()

	if p.audioSink != nil {
		p.dispatch(func() {
			if err := p.audioSink.Close(); err != nil {
				pkgLogger.Printf("audio sink teardown error: %v", err)
			}
		})
	}

	p.videoFrameDurationNs.Store(0)
	p.audioFrameDurationNs.Store(0)
	storeBitrate(&p.bitrateBps, 0)

	p.onStatus(StatusStopped, nil)
	p.state.Store(int32(stateIdle))
	close(done)
}

// IsRunning reports whether a session is currently active.
func (p *Player) IsRunning() bool {
	return p.running.Load()
}

// SetMaxReconnectAttempts overrides the reconnect budget; negatives clamp
// to 0. Visible on the next retry decision.
func (p *Player) SetMaxReconnectAttempts(n int) {
	p.reconnect.setMaxAttempts(n)
}

// SetReconnectDelayMs overrides the inter-attempt delay; negatives clamp to
// 0.
func (p *Player) SetReconnectDelayMs(ms int) {
	p.reconnect.setDelayMs(ms)
}

// Close permanently shuts down the Player: stops any session and retires
// the owner loop. A Player is not usable after Close.
func (p *Player) Close() {
	p.stopAndWait()
	close(p.ownerQuit)
}

func (p *Player) onStatus(status Status, err error) {
	if p.statusSink != nil {
		p.statusSink.OnStatus(status, err)
	}
}

func (p *Player) onError(err error) {
	if err == nil {
		return
	}
	pkgLogger.Printf("error: %v", err)
}

// publishStats builds and delivers one PlayerStats snapshot.
func (p *Player) publishStats() {
	if p.statsSink == nil {
		return
	}
	videoDepth := p.videoQueue.Size()
	audioDepth := p.audioQueue.Size()
	videoFrameMs := float64(p.videoFrameDurationNs.Load()) / float64(time.Millisecond)
	audioFrameMs := float64(p.audioFrameDurationNs.Load()) / float64(time.Millisecond)

	jitterMs := float64(videoDepth) * videoFrameMs
	if audioJitter := float64(audioDepth) * audioFrameMs; audioJitter > jitterMs {
		jitterMs = audioJitter
	}

	p.statsSink.OnStats(PlayerStats{
		VideoQueueSize:   videoDepth,
		AudioQueueSize:   audioDepth,
		VideoDropped:     p.videoQueue.DroppedCount(),
		AudioDropped:     p.audioQueue.DroppedCount(),
		BitrateBps:       loadBitrate(&p.bitrateBps) * 1000,
		JitterMs:         jitterMs,
		ReconnectAttempt: int(p.reconnect.attempt.Load()),
	})
}
