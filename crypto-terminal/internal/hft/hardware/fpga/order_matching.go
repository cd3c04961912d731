package fpga

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/DimaJoyti/go-coffee/crypto-terminal/internal/hft/domain/entities"
	"github.com/DimaJoyti/go-coffee/crypto-terminal/internal/hft/domain/valueobjects"
	"github.com/DimaJoyti/go-coffee/crypto-terminal/internal/hft/performance/latency"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// FPGAOrderMatchingEngine provides hardware-accelerated order matching
type FPGAOrderMatchingEngine struct {
	deviceID       int
	deviceHandle   unsafe.Pointer
	isInitialized  int32 // atomic bool
	isRunning      int32 // atomic bool
	
	// Hardware buffers (mapped to FPGA memory)
	orderBuffer    unsafe.Pointer
	resultBuffer   unsafe.Pointer
	configBuffer   unsafe.Pointer
	
	// Buffer sizes
	orderBufferSize  uint64
	resultBufferSize uint64
	configBufferSize uint64
	
	// Performance counters
	ordersProcessed  uint64
	matchesFound     uint64
	avgLatencyNs     uint64
	maxLatencyNs     uint64
	minLatencyNs     uint64
	
	// Configuration
	config           *FPGAConfig
	
	// Synchronization
	mutex            sync.RWMutex
	resultChan       chan *FPGAMatchResult
	
	// Observability
	tracer           trace.Tracer
	latencyTracker   *latency.LatencyTracker
	
	// Hardware interface
	driverInterface  FPGADriverInterface
}

// FPGAConfig holds FPGA configuration parameters
type FPGAConfig struct {
	DeviceID         int
	ClockFrequency   uint64 // MHz
	OrderBufferSize  uint64 // bytes
	ResultBufferSize uint64 // bytes
	MaxOrdersPerCycle uint32
	PricePrecision   uint8
	QuantityPrecision uint8
	EnablePipelining bool
	EnableParallelism bool
	NumMatchingUnits uint8
	CacheLineSize    uint32
	DMABurstSize     uint32
}

// FPGAOrder represents an order in FPGA-compatible format
type FPGAOrder struct {
	OrderID    uint64    // 8 bytes
	Price      uint64    // 8 bytes (fixed-point)
	Quantity   uint64    // 8 bytes (fixed-point)
	Side       uint8     // 1 byte (0=buy, 1=sell)
	Type       uint8     // 1 byte
	Flags      uint8     // 1 byte
	Reserved   uint8     // 1 byte (padding)
	Timestamp  uint64    // 8 bytes (nanoseconds)
	StrategyID uint32    // 4 bytes
	Symbol     uint32    // 4 bytes (hash)
	// Total: 48 bytes (cache-line aligned)
}

// FPGAMatchResult represents a match result from FPGA
type FPGAMatchResult struct {
	BuyOrderID    uint64
	SellOrderID   uint64
	MatchPrice    uint64 // fixed-point
	MatchQuantity uint64 // fixed-point
	Timestamp     uint64 // nanoseconds
	LatencyNs     uint32 // processing latency
	Flags         uint32 // match flags
}

// FPGADriverInterface defines the interface to FPGA driver
type FPGADriverInterface interface {
	Initialize(deviceID int) error
	Configure(config *FPGAConfig) error
	MapMemory(size uint64) (unsafe.Pointer, error)
	UnmapMemory(ptr unsafe.Pointer, size uint64) error
	StartProcessing() error
	StopProcessing() error
	GetStatus() (*FPGAStatus, error)
	Reset() error
	Close() error
}

// FPGAStatus represents FPGA device status
type FPGAStatus struct {
	IsRunning        bool
	Temperature      float32 // Celsius
	PowerConsumption float32 // Watts
	ClockFrequency   uint64  // MHz
	UtilizationPct   float32
	ErrorCount       uint64
	LastError        string
}

// NewFPGAOrderMatchingEngine creates a new FPGA order matching engine
func NewFPGAOrderMatchingEngine(config *FPGAConfig, driver FPGADriverInterface) (*FPGAOrderMatchingEngine, error) {
	engine := &FPGAOrderMatchingEngine{
		deviceID:         config.DeviceID,
		config:           config,
		driverInterface:  driver,
		tracer:           otel.Tracer("hft.fpga.order_matching"),
		latencyTracker:   latency.GetGlobalLatencyTracker(),
		resultChan:       make(chan *FPGAMatchResult, 10000),
		minLatencyNs:     ^uint64(0), // Max uint64
	}
	
	return engine, nil
}

// Initialize initializes the FPGA device and allocates buffers
func (engine *FPGAOrderMatchingEngine) Initialize() error {
	_, span := engine.tracer.Start(context.Background(), "FPGAOrderMatchingEngine.Initialize")
	defer span.End()
	
	span.SetAttributes(attribute.Int("device_id", engine.deviceID))
	
	// Initialize FPGA driver
	if err := engine.driverInterface.Initialize(engine.deviceID); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to initialize FPGA driver: %w", err)
	}
	
	// Configure FPGA
	if err := engine.driverInterface.Configure(engine.config); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to configure FPGA: %w", err)
	}
	
	// Allocate and map memory buffers
	if err := engine.allocateBuffers(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to allocate FPGA buffers: %w", err)
	}
	
	// Initialize hardware structures
	if err := engine.initializeHardwareStructures(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to initialize hardware structures: %w", err)
	}
	
	atomic.StoreInt32(&engine.isInitialized, 1)
	
	span.SetAttributes(
		attribute.Bool("initialized", true),
		attribute.Int64("order_buffer_size", int64(engine.orderBufferSize)),
		attribute.Int64("result_buffer_size", int64(engine.resultBufferSize)),
	)
	
	return nil
}

// Start starts the FPGA order matching engine
func (engine *FPGAOrderMatchingEngine) Start() error {
	if atomic.LoadInt32(&engine.isInitialized) == 0 {
		return fmt.Errorf("FPGA engine not initialized")
	}
	
	if atomic.LoadInt32(&engine.isRunning) == 1 {
		return fmt.Errorf("FPGA engine already running")
	}
	
	_, span := engine.tracer.Start(context.Background(), "FPGAOrderMatchingEngine.Start")
	defer span.End()
	
	// Start FPGA processing
	if err := engine.driverInterface.StartProcessing(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to start FPGA processing: %w", err)
	}
	
	atomic.StoreInt32(&engine.isRunning, 1)
	
	// Start result processing goroutine
	go engine.resultProcessor()
	
	// Start performance monitoring
	go engine.performanceMonitor()
	
	span.SetAttributes(attribute.Bool("started", true))
	return nil
}

// Stop stops the FPGA order matching engine
func (engine *FPGAOrderMatchingEngine) Stop() error {
	if atomic.LoadInt32(&engine.isRunning) == 0 {
		return nil // Already stopped
	}
	
	_, span := engine.tracer.Start(context.Background(), "FPGAOrderMatchingEngine.Stop")
	defer span.End()
	
	atomic.StoreInt32(&engine.isRunning, 0)
	
	// Stop FPGA processing
	if err := engine.driverInterface.StopProcessing(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to stop FPGA processing: %w", err)
	}
	
	// Close result channel
	close(engine.resultChan)
	
	span.SetAttributes(attribute.Bool("stopped", true))
	return nil
}

// SubmitOrder submits an order to the FPGA for matching
func (engine *FPGAOrderMatchingEngine) SubmitOrder(order *entities.Order) error {
	if atomic.LoadInt32(&engine.isRunning) == 0 {
		return fmt.Errorf("FPGA engine not running")
	}
	
	traceID := fmt.Sprintf("fpga_order_%s", order.GetID())
	engine.latencyTracker.RecordPoint(traceID, latency.PointOrderCreated)
	
	// Convert to FPGA format
	fpgaOrder, err := engine.convertToFPGAOrder(order)
	if err != nil {
		return fmt.Errorf("failed to convert order to FPGA format: %w", err)
	}
	
	// Write to FPGA buffer (zero-copy DMA)
	if err := engine.writeOrderToBuffer(fpgaOrder); err != nil {
		return fmt.Errorf("failed to write order to FPGA buffer: %w", err)
	}
	
	engine.latencyTracker.RecordPoint(traceID, latency.PointOrderSent)
	atomic.AddUint64(&engine.ordersProcessed, 1)
	
	return nil
}

// GetMatchResults returns a channel for receiving match results
func (engine *FPGAOrderMatchingEngine) GetMatchResults() <-chan *FPGAMatchResult {
	return engine.resultChan
}

// GetPerformanceStats returns performance statistics
func (engine *FPGAOrderMatchingEngine) GetPerformanceStats() map[string]interface{} {
	return map[string]interface{}{
		"orders_processed":  atomic.LoadUint64(&engine.ordersProcessed),
		"matches_found":     atomic.LoadUint64(&engine.matchesFound),
		"avg_latency_ns":    atomic.LoadUint64(&engine.avgLatencyNs),
		"min_latency_ns":    atomic.LoadUint64(&engine.minLatencyNs),
		"max_latency_ns":    atomic.LoadUint64(&engine.maxLatencyNs),
		"is_running":        atomic.LoadInt32(&engine.isRunning) == 1,
		"is_initialized":    atomic.LoadInt32(&engine.isInitialized) == 1,
	}
}

// GetDeviceStatus returns FPGA device status
func (engine *FPGAOrderMatchingEngine) GetDeviceStatus() (*FPGAStatus, error) {
	return engine.driverInterface.GetStatus()
}

// allocateBuffers allocates and maps FPGA memory buffers
func (engine *FPGAOrderMatchingEngine) allocateBuffers() error {
	var err error
	
	// Allocate order buffer
	engine.orderBufferSize = engine.config.OrderBufferSize
	engine.orderBuffer, err = engine.driverInterface.MapMemory(engine.orderBufferSize)
	if err != nil {
		return fmt.Errorf("failed to map order buffer: %w", err)
	}
	
	// Allocate result buffer
	engine.resultBufferSize = engine.config.ResultBufferSize
	engine.resultBuffer, err = engine.driverInterface.MapMemory(engine.resultBufferSize)
	if err != nil {
		return fmt.Errorf("failed to map result buffer: %w", err)
	}
	
	// Allocate config buffer
	engine.configBufferSize = 4096 // 4KB for configuration
	engine.configBuffer, err = engine.driverInterface.MapMemory(engine.configBufferSize)
	if err != nil {
		return fmt.Errorf("failed to map config buffer: %w", err)
	}
	
	return nil
}

// initializeHardwareStructures initializes FPGA hardware structures
func (engine *FPGAOrderMatchingEngine) initializeHardwareStructures() error {
	// Initialize order book structures in FPGA memory
	// This would involve setting up price level arrays, order queues, etc.
	
	// Zero out buffers
	engine.zeroBuffer(engine.orderBuffer, engine.orderBufferSize)
	engine.zeroBuffer(engine.resultBuffer, engine.resultBufferSize)
	engine.zeroBuffer(engine.configBuffer, engine.configBufferSize)
	
	// Write configuration to FPGA
	return engine.writeConfiguration()
}

// writeConfiguration writes configuration to FPGA
func (engine *FPGAOrderMatchingEngine) writeConfiguration() error {
	// This would write configuration parameters to the FPGA
	// Including price precision, quantity precision, matching rules, etc.
	
	configData := (*[4096]byte)(engine.configBuffer)
	
	// Write configuration (simplified)
	configData[0] = engine.config.PricePrecision
	configData[1] = engine.config.QuantityPrecision
	configData[2] = engine.config.NumMatchingUnits
	configData[3] = byte(engine.config.MaxOrdersPerCycle)
	
	return nil
}

// convertToFPGAOrder converts a domain order to FPGA format
func (engine *FPGAOrderMatchingEngine) convertToFPGAOrder(order *entities.Order) (*FPGAOrder, error) {
	// Convert price and quantity to fixed-point representation
	priceFixed, err := engine.decimalToFixedPoint(order.GetPrice().Decimal, engine.config.PricePrecision)
	if err != nil {
		return nil, fmt.Errorf("failed to convert price: %w", err)
	}
	
	quantityFixed, err := engine.decimalToFixedPoint(order.GetQuantity().Decimal, engine.config.QuantityPrecision)
	if err != nil {
		return nil, fmt.Errorf("failed to convert quantity: %w", err)
	}
	
	// Convert order ID to uint64
	orderIDHash := engine.hashString(string(order.GetID()))
	
	// Convert symbol to hash
	symbolHash := engine.hashString(string(order.GetSymbol()))
	
	// Convert strategy ID to uint32
	strategyIDHash := uint32(engine.hashString(string(order.GetStrategyID())))
	
	fpgaOrder := &FPGAOrder{
		OrderID:    orderIDHash,
		Price:      priceFixed,
		Quantity:   quantityFixed,
		Side:       engine.convertSide(order.GetSide()),
		Type:       engine.convertOrderType(order.GetOrderType()),
		Flags:      0,
		Reserved:   0,
		Timestamp:  uint64(time.Now().UnixNano()),
		StrategyID: strategyIDHash,
		Symbol:     uint32(symbolHash),
	}
	
	return fpgaOrder, nil
}

// writeOrderToBuffer writes an order to the FPGA buffer
func (engine *FPGAOrderMatchingEngine) writeOrderToBuffer(order *FPGAOrder) error {
	// This would implement zero-copy DMA write to FPGA
	// For now, we'll simulate with memory copy
	
	orderSize := unsafe.Sizeof(*order)
	if uint64(orderSize) > engine.orderBufferSize {
		return fmt.Errorf("order size exceeds buffer size")
	}
	
	// Copy order to FPGA buffer (this would be DMA in real implementation)
	orderBytes := (*[48]byte)(unsafe.Pointer(order))
	bufferBytes := (*[48]byte)(engine.orderBuffer)
	copy(bufferBytes[:], orderBytes[:])
	
	return nil
}

// resultProcessor processes match results from FPGA
func (engine *FPGAOrderMatchingEngine) resultProcessor() {
	for atomic.LoadInt32(&engine.isRunning) == 1 {
		// Poll FPGA result buffer
		result := engine.readResultFromBuffer()
		if result != nil {
			// Update performance statistics
			engine.updateLatencyStats(result.LatencyNs)
			atomic.AddUint64(&engine.matchesFound, 1)
			
			// Send result to channel
			select {
			case engine.resultChan <- result:
			default:
				// Channel full, drop result (or implement backpressure)
			}
		}
		
		// Very short sleep to avoid busy waiting
		time.Sleep(10 * time.Nanosecond)
	}
}

// readResultFromBuffer reads a match result from FPGA buffer
func (engine *FPGAOrderMatchingEngine) readResultFromBuffer() *FPGAMatchResult {
	// This would read from FPGA result buffer
	// For now, return nil (no results)
	return nil
}

// performanceMonitor monitors FPGA performance
func (engine *FPGAOrderMatchingEngine) performanceMonitor() {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()
	
	for {
		select {
		case <-ticker.C:
			if atomic.LoadInt32(&engine.isRunning) == 0 {
				return
			}
			
			status, err := engine.driverInterface.GetStatus()
			if err != nil {
				continue
			}
			
			// Log performance metrics
			engine.logPerformanceMetrics(status)
			
		}
	}
}

// Helper functions

func (engine *FPGAOrderMatchingEngine) decimalToFixedPoint(d decimal.Decimal, precision uint8) (uint64, error) {
	// Convert decimal to fixed-point representation
	multiplier := decimal.New(1, int32(precision))
	fixed := d.Mul(multiplier)
	
	if !fixed.IsInteger() {
		return 0, fmt.Errorf("decimal cannot be represented as fixed-point with precision %d", precision)
	}
	
	result, _ := fixed.Float64()
	return uint64(result), nil
}

func (engine *FPGAOrderMatchingEngine) hashString(s string) uint64 {
	// Simple hash function (use a proper hash in production)
	var hash uint64 = 5381
	for _, c := range s {
		hash = ((hash << 5) + hash) + uint64(c)
	}
	return hash
}

func (engine *FPGAOrderMatchingEngine) convertSide(side valueobjects.OrderSide) uint8 {
	if side == valueobjects.OrderSideBuy {
		return 0
	}
	return 1
}

func (engine *FPGAOrderMatchingEngine) convertOrderType(orderType valueobjects.OrderType) uint8 {
	switch orderType {
	case valueobjects.OrderTypeMarket:
		return 0
	case valueobjects.OrderTypeLimit:
		return 1
	default:
		return 1
	}
}

func (engine *FPGAOrderMatchingEngine) zeroBuffer(ptr unsafe.Pointer, size uint64) {
	// Zero out memory buffer
	buffer := (*[1 << 30]byte)(ptr)[:size:size]
	for i := range buffer {
		buffer[i] = 0
	}
}

func (engine *FPGAOrderMatchingEngine) updateLatencyStats(latencyNs uint32) {
	latency := uint64(latencyNs)
	
	// Update min latency
	for {
		current := atomic.LoadUint64(&engine.minLatencyNs)
		if latency >= current || atomic.CompareAndSwapUint64(&engine.minLatencyNs, current, latency) {
			break
		}
	}
	
	// Update max latency
	for {
		current := atomic.LoadUint64(&engine.maxLatencyNs)
		if latency <= current || atomic.CompareAndSwapUint64(&engine.maxLatencyNs, current, latency) {
			break
		}
	}
	
	// Update average latency (simplified)
	current := atomic.LoadUint64(&engine.avgLatencyNs)
	newAvg := (current + latency) / 2
	atomic.StoreUint64(&engine.avgLatencyNs, newAvg)
}

func (engine *FPGAOrderMatchingEngine) logPerformanceMetrics(status *FPGAStatus) {
	// Log performance metrics to observability system
	// This would integrate with OpenTelemetry metrics
}

// Close closes the FPGA engine and releases resources
func (engine *FPGAOrderMatchingEngine) Close() error {
	// Stop processing
	engine.Stop()
	
	// Unmap memory buffers
	if engine.orderBuffer != nil {
		engine.driverInterface.UnmapMemory(engine.orderBuffer, engine.orderBufferSize)
	}
	if engine.resultBuffer != nil {
		engine.driverInterface.UnmapMemory(engine.resultBuffer, engine.resultBufferSize)
	}
	if engine.configBuffer != nil {
		engine.driverInterface.UnmapMemory(engine.configBuffer, engine.configBufferSize)
	}
	
	// Close driver
	return engine.driverInterface.Close()
}
