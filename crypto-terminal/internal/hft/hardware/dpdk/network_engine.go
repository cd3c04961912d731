package dpdk

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/DimaJoyti/go-coffee/crypto-terminal/internal/hft/performance/latency"
	"github.com/DimaJoyti/go-coffee/crypto-terminal/internal/hft/performance/memory"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// DPDKNetworkEngine provides kernel bypass networking using DPDK
type DPDKNetworkEngine struct {
	// DPDK configuration
	config           *DPDKConfig
	isInitialized    int32 // atomic bool
	isRunning        int32 // atomic bool
	
	// Memory pools
	mbufPool         unsafe.Pointer // DPDK mbuf pool
	packetPool       *memory.ObjectPool[DPDKPacket]
	
	// Network interfaces
	portID           uint16
	queueID          uint16
	rxQueue          unsafe.Pointer // DPDK RX queue
	txQueue          unsafe.Pointer // DPDK TX queue
	
	// Packet processing
	rxBurst          []unsafe.Pointer // RX packet burst buffer
	txBurst          []unsafe.Pointer // TX packet burst buffer
	burstSize        uint16
	
	// Statistics
	packetsRx        uint64
	packetsTx        uint64
	bytesRx          uint64
	bytesTx          uint64
	packetsDropped   uint64
	errorsRx         uint64
	errorsTx         uint64
	
	// Performance metrics
	avgLatencyNs     uint64
	minLatencyNs     uint64
	maxLatencyNs     uint64
	
	// Channels for packet processing
	rxChan           chan *DPDKPacket
	txChan           chan *DPDKPacket
	
	// Worker control
	workers          sync.WaitGroup
	stopChan         chan struct{}
	
	// Observability
	tracer           trace.Tracer
	latencyTracker   *latency.LatencyTracker
	
	// Hardware timestamping
	hwTimestamping   bool
	timestampOffset  uint64
}

// DPDKConfig holds DPDK configuration
type DPDKConfig struct {
	// EAL (Environment Abstraction Layer) parameters
	CoreMask         string   // CPU cores to use
	MemoryChannels   int      // Number of memory channels
	HugePages        bool     // Use huge pages
	IOVA             string   // IOVA mode (pa/va)
	
	// Port configuration
	PortID           uint16   // Network port ID
	NumRxQueues      uint16   // Number of RX queues
	NumTxQueues      uint16   // Number of TX queues
	RxDescriptors    uint16   // RX descriptors per queue
	TxDescriptors    uint16   // TX descriptors per queue
	
	// Memory pool configuration
	MbufPoolSize     uint32   // Number of mbufs in pool
	MbufCacheSize    uint32   // Per-core mbuf cache size
	MbufDataSize     uint16   // Data size per mbuf
	
	// Performance tuning
	BurstSize        uint16   // Packet burst size
	PrefetchOffset   uint8    // Prefetch offset
	EnableRSS        bool     // Receive Side Scaling
	EnableChecksum   bool     // Hardware checksum offload
	EnableTimestamp  bool     // Hardware timestamping
	
	// Interrupt configuration
	InterruptMode    string   // polling/interrupt
	PollInterval     time.Duration
	
	// CPU affinity
	RxCoreID         int      // RX processing core
	TxCoreID         int      // TX processing core
	WorkerCoreIDs    []int    // Worker core IDs
}

// DPDKPacket represents a DPDK packet
type DPDKPacket struct {
	Mbuf         unsafe.Pointer // DPDK mbuf pointer
	Data         []byte         // Packet data (zero-copy reference)
	Length       uint16         // Packet length
	Port         uint16         // Source/destination port
	Timestamp    uint64         // Hardware timestamp (nanoseconds)
	RxTimestamp  uint64         // RX timestamp
	TxTimestamp  uint64         // TX timestamp
	Metadata     PacketMetadata // Additional metadata
}

// PacketMetadata holds packet metadata
type PacketMetadata struct {
	Protocol     uint8    // Protocol type (TCP/UDP)
	SrcIP        [4]byte  // Source IP
	DstIP        [4]byte  // Destination IP
	SrcPort      uint16   // Source port
	DstPort      uint16   // Destination port
	PayloadLen   uint16   // Payload length
	Checksum     uint16   // Packet checksum
	VLAN         uint16   // VLAN tag
	RSS          uint32   // RSS hash
}

// PacketHandler defines the interface for packet processing
type PacketHandler interface {
	HandleRxPacket(ctx context.Context, packet *DPDKPacket) error
	HandleTxPacket(ctx context.Context, packet *DPDKPacket) error
}

// NewDPDKNetworkEngine creates a new DPDK network engine
func NewDPDKNetworkEngine(config *DPDKConfig) (*DPDKNetworkEngine, error) {
	engine := &DPDKNetworkEngine{
		config:         config,
		portID:         config.PortID,
		queueID:        0, // Use queue 0 for simplicity
		burstSize:      config.BurstSize,
		rxChan:         make(chan *DPDKPacket, 10000),
		txChan:         make(chan *DPDKPacket, 10000),
		stopChan:       make(chan struct{}),
		tracer:         otel.Tracer("hft.dpdk.network"),
		latencyTracker: latency.GetGlobalLatencyTracker(),
		hwTimestamping: config.EnableTimestamp,
		minLatencyNs:   ^uint64(0), // Max uint64
	}
	
	// Initialize packet pool
	engine.packetPool = memory.NewObjectPool[DPDKPacket](
		"DPDKPacketPool",
		int(config.MbufPoolSize),
		func() *DPDKPacket {
			return &DPDKPacket{}
		},
		func(packet *DPDKPacket) {
			packet.Mbuf = nil
			packet.Data = nil
			packet.Length = 0
			packet.Timestamp = 0
		},
	)
	
	// Allocate burst buffers
	engine.rxBurst = make([]unsafe.Pointer, config.BurstSize)
	engine.txBurst = make([]unsafe.Pointer, config.BurstSize)
	
	return engine, nil
}

// Initialize initializes the DPDK network engine
func (engine *DPDKNetworkEngine) Initialize() error {
	_, span := engine.tracer.Start(context.Background(), "DPDKNetworkEngine.Initialize")
	defer span.End()
	
	// Initialize DPDK EAL (Environment Abstraction Layer)
	if err := engine.initializeEAL(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to initialize DPDK EAL: %w", err)
	}
	
	// Create memory pool for mbufs
	if err := engine.createMbufPool(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create mbuf pool: %w", err)
	}
	
	// Configure network port
	if err := engine.configurePort(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to configure port: %w", err)
	}
	
	// Setup RX/TX queues
	if err := engine.setupQueues(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to setup queues: %w", err)
	}
	
	// Start the port
	if err := engine.startPort(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to start port: %w", err)
	}
	
	atomic.StoreInt32(&engine.isInitialized, 1)
	
	span.SetAttributes(
		attribute.Int("port_id", int(engine.portID)),
		attribute.Int("burst_size", int(engine.burstSize)),
		attribute.Bool("hw_timestamping", engine.hwTimestamping),
	)
	
	return nil
}

// Start starts the DPDK network engine
func (engine *DPDKNetworkEngine) Start() error {
	if atomic.LoadInt32(&engine.isInitialized) == 0 {
		return fmt.Errorf("DPDK engine not initialized")
	}
	
	if atomic.LoadInt32(&engine.isRunning) == 1 {
		return fmt.Errorf("DPDK engine already running")
	}
	
	_, span := engine.tracer.Start(context.Background(), "DPDKNetworkEngine.Start")
	defer span.End()
	
	atomic.StoreInt32(&engine.isRunning, 1)
	
	// Start RX worker
	engine.workers.Add(1)
	go engine.rxWorker()
	
	// Start TX worker
	engine.workers.Add(1)
	go engine.txWorker()
	
	// Start statistics collector
	engine.workers.Add(1)
	go engine.statisticsCollector()
	
	span.SetAttributes(attribute.Bool("started", true))
	return nil
}

// Stop stops the DPDK network engine
func (engine *DPDKNetworkEngine) Stop() error {
	if atomic.LoadInt32(&engine.isRunning) == 0 {
		return nil // Already stopped
	}
	
	_, span := engine.tracer.Start(context.Background(), "DPDKNetworkEngine.Stop")
	defer span.End()
	
	atomic.StoreInt32(&engine.isRunning, 0)
	
	// Signal workers to stop
	close(engine.stopChan)
	
	// Wait for workers to finish
	engine.workers.Wait()
	
	// Stop the port
	engine.stopPort()
	
	span.SetAttributes(attribute.Bool("stopped", true))
	return nil
}

// SendPacket sends a packet through DPDK
func (engine *DPDKNetworkEngine) SendPacket(data []byte, dstIP net.IP, dstPort uint16) error {
	if atomic.LoadInt32(&engine.isRunning) == 0 {
		return fmt.Errorf("DPDK engine not running")
	}
	
	// Get packet from pool
	packet := engine.packetPool.Get()
	
	// Allocate mbuf
	mbuf, err := engine.allocateMbuf()
	if err != nil {
		engine.packetPool.Put(packet)
		return fmt.Errorf("failed to allocate mbuf: %w", err)
	}
	
	// Setup packet
	packet.Mbuf = mbuf
	packet.Data = data
	packet.Length = uint16(len(data))
	packet.TxTimestamp = uint64(time.Now().UnixNano())
	
	// Set destination
	copy(packet.Metadata.DstIP[:], dstIP.To4())
	packet.Metadata.DstPort = dstPort
	
	// Copy data to mbuf
	if err := engine.copyDataToMbuf(mbuf, data); err != nil {
		engine.freeMbuf(mbuf)
		engine.packetPool.Put(packet)
		return fmt.Errorf("failed to copy data to mbuf: %w", err)
	}
	
	// Send to TX channel
	select {
	case engine.txChan <- packet:
		return nil
	default:
		// Channel full, drop packet
		engine.freeMbuf(mbuf)
		engine.packetPool.Put(packet)
		atomic.AddUint64(&engine.packetsDropped, 1)
		return fmt.Errorf("TX channel full")
	}
}

// GetRxChannel returns the RX packet channel
func (engine *DPDKNetworkEngine) GetRxChannel() <-chan *DPDKPacket {
	return engine.rxChan
}

// GetStatistics returns network statistics
func (engine *DPDKNetworkEngine) GetStatistics() map[string]interface{} {
	return map[string]interface{}{
		"packets_rx":       atomic.LoadUint64(&engine.packetsRx),
		"packets_tx":       atomic.LoadUint64(&engine.packetsTx),
		"bytes_rx":         atomic.LoadUint64(&engine.bytesRx),
		"bytes_tx":         atomic.LoadUint64(&engine.bytesTx),
		"packets_dropped":  atomic.LoadUint64(&engine.packetsDropped),
		"errors_rx":        atomic.LoadUint64(&engine.errorsRx),
		"errors_tx":        atomic.LoadUint64(&engine.errorsTx),
		"avg_latency_ns":   atomic.LoadUint64(&engine.avgLatencyNs),
		"min_latency_ns":   atomic.LoadUint64(&engine.minLatencyNs),
		"max_latency_ns":   atomic.LoadUint64(&engine.maxLatencyNs),
		"is_running":       atomic.LoadInt32(&engine.isRunning) == 1,
	}
}

// rxWorker handles packet reception
func (engine *DPDKNetworkEngine) rxWorker() {
	defer engine.workers.Done()
	
	// Pin to RX core if specified
	if engine.config.RxCoreID >= 0 {
		engine.pinToCPU(engine.config.RxCoreID)
	}
	
	for {
		select {
		case <-engine.stopChan:
			return
		default:
		}
		
		// Receive packet burst
		numRx := engine.receiveBurst()
		if numRx == 0 {
			// No packets, short sleep to avoid busy waiting
			time.Sleep(1 * time.Microsecond)
			continue
		}
		
		// Process received packets
		for i := uint16(0); i < numRx; i++ {
			engine.processRxPacket(engine.rxBurst[i])
		}
	}
}

// txWorker handles packet transmission
func (engine *DPDKNetworkEngine) txWorker() {
	defer engine.workers.Done()
	
	// Pin to TX core if specified
	if engine.config.TxCoreID >= 0 {
		engine.pinToCPU(engine.config.TxCoreID)
	}
	
	txBuffer := make([]*DPDKPacket, engine.burstSize)
	bufferCount := 0
	
	ticker := time.NewTicker(10 * time.Microsecond) // Flush every 10Î¼s
	defer ticker.Stop()
	
	for {
		select {
		case <-engine.stopChan:
			// Flush remaining packets
			if bufferCount > 0 {
				engine.transmitBurst(txBuffer[:bufferCount])
			}
			return
			
		case packet := <-engine.txChan:
			txBuffer[bufferCount] = packet
			bufferCount++
			
			// Transmit when buffer is full
			if bufferCount == int(engine.burstSize) {
				engine.transmitBurst(txBuffer[:bufferCount])
				bufferCount = 0
			}
			
		case <-ticker.C:
			// Periodic flush
			if bufferCount > 0 {
				engine.transmitBurst(txBuffer[:bufferCount])
				bufferCount = 0
			}
		}
	}
}

// statisticsCollector collects and reports statistics
func (engine *DPDKNetworkEngine) statisticsCollector() {
	defer engine.workers.Done()
	
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()
	
	for {
		select {
		case <-engine.stopChan:
			return
		case <-ticker.C:
			engine.collectPortStatistics()
		}
	}
}

// DPDK-specific implementations (these would use CGO to call DPDK C functions)

func (engine *DPDKNetworkEngine) initializeEAL() error {
	// This would call rte_eal_init() with appropriate parameters
	// For now, this is a placeholder
	return nil
}

func (engine *DPDKNetworkEngine) createMbufPool() error {
	// This would call rte_pktmbuf_pool_create()
	// For now, this is a placeholder
	return nil
}

func (engine *DPDKNetworkEngine) configurePort() error {
	// This would call rte_eth_dev_configure()
	// For now, this is a placeholder
	return nil
}

func (engine *DPDKNetworkEngine) setupQueues() error {
	// This would call rte_eth_rx_queue_setup() and rte_eth_tx_queue_setup()
	// For now, this is a placeholder
	return nil
}

func (engine *DPDKNetworkEngine) startPort() error {
	// This would call rte_eth_dev_start()
	// For now, this is a placeholder
	return nil
}

func (engine *DPDKNetworkEngine) stopPort() error {
	// This would call rte_eth_dev_stop()
	// For now, this is a placeholder
	return nil
}

func (engine *DPDKNetworkEngine) receiveBurst() uint16 {
	// This would call rte_eth_rx_burst()
	// For now, return 0 (no packets)
	return 0
}

func (engine *DPDKNetworkEngine) transmitBurst(packets []*DPDKPacket) uint16 {
	// This would call rte_eth_tx_burst()
	// For now, simulate successful transmission
	for _, packet := range packets {
		atomic.AddUint64(&engine.packetsTx, 1)
		atomic.AddUint64(&engine.bytesTx, uint64(packet.Length))
		
		// Calculate latency
		if packet.TxTimestamp > 0 {
			latency := uint64(time.Now().UnixNano()) - packet.TxTimestamp
			engine.updateLatencyStats(latency)
		}
		
		// Free mbuf and return packet to pool
		engine.freeMbuf(packet.Mbuf)
		engine.packetPool.Put(packet)
	}
	
	return uint16(len(packets))
}

func (engine *DPDKNetworkEngine) processRxPacket(mbuf unsafe.Pointer) {
	// Get packet from pool
	packet := engine.packetPool.Get()
	
	// Extract packet data (zero-copy)
	packet.Mbuf = mbuf
	packet.Data = engine.getMbufData(mbuf)
	packet.Length = engine.getMbufLength(mbuf)
	packet.RxTimestamp = uint64(time.Now().UnixNano())
	
	// Extract hardware timestamp if available
	if engine.hwTimestamping {
		packet.Timestamp = engine.getHardwareTimestamp(mbuf)
	}
	
	// Parse packet metadata
	engine.parsePacketMetadata(packet)
	
	// Update statistics
	atomic.AddUint64(&engine.packetsRx, 1)
	atomic.AddUint64(&engine.bytesRx, uint64(packet.Length))
	
	// Send to RX channel
	select {
	case engine.rxChan <- packet:
	default:
		// Channel full, drop packet
		engine.freeMbuf(mbuf)
		engine.packetPool.Put(packet)
		atomic.AddUint64(&engine.packetsDropped, 1)
	}
}

func (engine *DPDKNetworkEngine) allocateMbuf() (unsafe.Pointer, error) {
	// This would call rte_pktmbuf_alloc()
	// TODO: Implement actual DPDK mbuf allocation
	// For now, return nil as this is placeholder code
	return nil, fmt.Errorf("DPDK mbuf allocation not implemented - placeholder code")
}

func (engine *DPDKNetworkEngine) freeMbuf(mbuf unsafe.Pointer) {
	// This would call rte_pktmbuf_free()
	// For now, this is a no-op
}

func (engine *DPDKNetworkEngine) copyDataToMbuf(mbuf unsafe.Pointer, data []byte) error {
	// This would copy data to mbuf using rte_memcpy()
	// For now, this is a placeholder
	return nil
}

func (engine *DPDKNetworkEngine) getMbufData(mbuf unsafe.Pointer) []byte {
	// This would extract data pointer from mbuf
	// For now, return empty slice
	return []byte{}
}

func (engine *DPDKNetworkEngine) getMbufLength(mbuf unsafe.Pointer) uint16 {
	// This would extract length from mbuf
	// For now, return 0
	return 0
}

func (engine *DPDKNetworkEngine) getHardwareTimestamp(mbuf unsafe.Pointer) uint64 {
	// This would extract hardware timestamp from mbuf
	// For now, return current time
	return uint64(time.Now().UnixNano())
}

func (engine *DPDKNetworkEngine) parsePacketMetadata(packet *DPDKPacket) {
	// This would parse Ethernet/IP/TCP/UDP headers
	// For now, this is a placeholder
}

func (engine *DPDKNetworkEngine) collectPortStatistics() {
	// This would call rte_eth_stats_get()
	// For now, this is a placeholder
}

func (engine *DPDKNetworkEngine) pinToCPU(coreID int) {
	// This would pin the current thread to a specific CPU core
	// For now, this is a placeholder
}

func (engine *DPDKNetworkEngine) updateLatencyStats(latencyNs uint64) {
	// Update min latency
	for {
		current := atomic.LoadUint64(&engine.minLatencyNs)
		if latencyNs >= current || atomic.CompareAndSwapUint64(&engine.minLatencyNs, current, latencyNs) {
			break
		}
	}
	
	// Update max latency
	for {
		current := atomic.LoadUint64(&engine.maxLatencyNs)
		if latencyNs <= current || atomic.CompareAndSwapUint64(&engine.maxLatencyNs, current, latencyNs) {
			break
		}
	}
	
	// Update average latency (simplified)
	current := atomic.LoadUint64(&engine.avgLatencyNs)
	newAvg := (current + latencyNs) / 2
	atomic.StoreUint64(&engine.avgLatencyNs, newAvg)
}

// Close closes the DPDK network engine
func (engine *DPDKNetworkEngine) Close() error {
	// Stop processing
	engine.Stop()
	
	// Cleanup DPDK resources
	// This would call rte_eal_cleanup()
	
	return nil
}
