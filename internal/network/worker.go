package network

import (
	"sync"
	"time"

	"github.com/lanchat/lanchat/internal/netutil"
)

const (
	upInterval   = 60 * time.Second
	downInterval = 15 * time.Second
)

// ConnectionWorker keeps checking which network interface the chat should
// use, and notifies its listeners when the network goes up, goes down, or
// moves to another interface.
type ConnectionWorker struct {
	utils  *netutil.Utils
	saved  func() string
	prober InterfaceProber

	// update serializes interface selection and the notifications it causes
	update sync.Mutex

	mu        sync.RWMutex
	current   *netutil.Interface
	networkUp bool

	listenersMu sync.RWMutex
	listeners   []ConnectionListener

	runMu   sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}
	check   chan struct{}

	upInterval   time.Duration
	downInterval time.Duration
}

// NewConnectionWorker creates a stopped worker. saved returns the name of
// the interface chosen in the settings, or "". A nil utils uses the system
// interfaces, and a nil prober skips the operating system check.
func NewConnectionWorker(utils *netutil.Utils, saved func() string, prober InterfaceProber) *ConnectionWorker {
	if utils == nil {
		utils = netutil.New(nil)
	}
	if saved == nil {
		saved = func() string { return "" }
	}
	return &ConnectionWorker{
		utils:        utils,
		saved:        saved,
		prober:       prober,
		check:        make(chan struct{}, 1),
		upInterval:   upInterval,
		downInterval: downInterval,
	}
}

// RegisterListener adds a listener for network changes
func (w *ConnectionWorker) RegisterListener(l ConnectionListener) {
	w.listenersMu.Lock()
	w.listeners = append(w.listeners, l)
	w.listenersMu.Unlock()
}

func (w *ConnectionWorker) snapshotListeners() []ConnectionListener {
	w.listenersMu.RLock()
	defer w.listenersMu.RUnlock()
	out := make([]ConnectionListener, len(w.listeners))
	copy(out, w.listeners)
	return out
}

// Start runs the worker loop in the background. Starting a running worker
// does nothing.
func (w *ConnectionWorker) Start() {
	w.runMu.Lock()
	defer w.runMu.Unlock()

	if w.running {
		log.Debug("connection worker already running")
		return
	}

	w.running = true
	w.stop = make(chan struct{})
	w.done = make(chan struct{})
	go w.run(w.stop, w.done)
	log.Info("started connection worker")
}

// Stop ends the worker loop and waits for it to take the network down.
// It must not be called from a ConnectionListener callback.
func (w *ConnectionWorker) Stop() {
	w.runMu.Lock()
	if !w.running {
		w.runMu.Unlock()
		return
	}
	w.running = false
	close(w.stop)
	done := w.done
	w.runMu.Unlock()

	<-done
	log.Info("stopped connection worker")
}

// CheckNetwork wakes the worker for an immediate check
func (w *ConnectionWorker) CheckNetwork() {
	select {
	case w.check <- struct{}{}:
	default:
	}
}

// IsAlive reports whether the worker loop is running
func (w *ConnectionWorker) IsAlive() bool {
	w.runMu.Lock()
	defer w.runMu.Unlock()
	if !w.running {
		return false
	}
	select {
	case <-w.done:
		return false
	default:
		return true
	}
}

// IsNetworkUp reports whether the network is up
func (w *ConnectionWorker) IsNetworkUp() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.networkUp
}

// CurrentNetworkInterface returns a fresh snapshot of the interface in use,
// falling back to the last known one if it can no longer be found. Returns
// nil when there is no interface.
func (w *ConnectionWorker) CurrentNetworkInterface() *netutil.Interface {
	w.mu.RLock()
	current := w.current
	w.mu.RUnlock()

	if current == nil {
		return nil
	}
	if updated := w.utils.Updated(current); updated != nil {
		return updated
	}
	return current
}

func (w *ConnectionWorker) run(stop, done chan struct{}) {
	defer close(done)

	for {
		wait := w.downInterval
		if w.updateNetwork() {
			wait = w.upInterval
		}

		timer := time.NewTimer(wait)
		select {
		case <-stop:
			timer.Stop()
			w.shutdown()
			return
		case <-w.check:
			timer.Stop()
			log.Debug("network check requested")
		case <-timer.C:
		}
	}
}

func (w *ConnectionWorker) shutdown() {
	w.update.Lock()
	defer w.update.Unlock()

	if w.IsNetworkUp() {
		w.notifyDown(false)
	}
	w.mu.Lock()
	w.current = nil
	w.mu.Unlock()
}

// updateNetwork selects the interface to use and notifies listeners of
// any change. Returns true if the network is up afterwards.
func (w *ConnectionWorker) updateNetwork() bool {
	w.update.Lock()
	defer w.update.Unlock()

	iface := w.selectNetworkInterface()
	if iface == nil {
		log.Debug("no usable network interface")
		if w.IsNetworkUp() {
			w.notifyDown(false)
		}
		return false
	}

	w.mu.Lock()
	changed := w.current == nil || w.current.Name != iface.Name
	if changed || !w.networkUp {
		w.current = iface
	}
	up := w.networkUp
	w.mu.Unlock()

	switch {
	case changed && up:
		log.WithField("iface", iface.Name).Info("changed network interface")
		w.notifyDown(true)
		w.notifyUp(true)
	case changed || !up:
		log.WithField("iface", iface.Name).Info("using network interface")
		w.notifyUp(false)
	}
	return true
}

// selectNetworkInterface prefers the saved interface, then the one the
// operating system uses, then the first usable one.
func (w *ConnectionWorker) selectNetworkInterface() *netutil.Interface {
	first := w.utils.FindFirstUsable()
	if first == nil {
		return nil
	}

	if saved := w.utils.ByName(w.saved()); saved != nil {
		if w.utils.IsUsable(saved) {
			return saved
		}
		log.WithField("iface", saved.Name).Debug("saved network interface is not usable")
	}

	if w.prober != nil {
		if preferred := w.prober.Interface(); w.utils.IsUsable(preferred) {
			return preferred
		}
	}

	return first
}

func (w *ConnectionWorker) notifyUp(silent bool) {
	listeners := w.snapshotListeners()
	for _, l := range listeners {
		l.BeforeNetworkCameUp()
	}

	w.mu.Lock()
	w.networkUp = true
	w.mu.Unlock()

	for _, l := range listeners {
		l.NetworkCameUp(silent)
	}
}

func (w *ConnectionWorker) notifyDown(silent bool) {
	w.mu.Lock()
	w.networkUp = false
	w.mu.Unlock()

	for _, l := range w.snapshotListeners() {
		l.NetworkWentDown(silent)
	}
}
