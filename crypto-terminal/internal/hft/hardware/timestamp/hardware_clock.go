package timestamp

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// HardwareTimestampEngine provides nanosecond-precision hardware timestamping
type HardwareTimestampEngine struct {
	// Hardware configuration
	config           *TimestampConfig
	isInitialized    int32 // atomic bool
	isRunning        int32 // atomic bool
	
	// Hardware interfaces
	nicInterface     NICTimestampInterface
	ptpInterface     PTPInterface
	gpsInterface     GPSInterface
	
	// Clock synchronization
	clockOffset      int64  // nanoseconds offset from system clock
	clockDrift       int64  // nanoseconds drift per second
	lastSyncTime     int64  // last synchronization timestamp
	syncInterval     time.Duration
	
	// Timestamp sources
	primarySource    TimestampSource
	backupSource     TimestampSource
	currentSource    int32 // atomic: 0=primary, 1=backup
	
	// Performance metrics
	timestampCount   uint64
	syncCount        uint64
	errorCount       uint64
	avgAccuracy      int64  // nanoseconds
	maxAccuracy      int64  // nanoseconds
	
	// Calibration
	calibrationData  []CalibrationPoint
	calibrationMutex sync.RWMutex
	
	// Observability
	tracer           trace.Tracer
	
	// Worker control
	workers          sync.WaitGroup
	stopChan         chan struct{}
}

// TimestampConfig holds hardware timestamp configuration
type TimestampConfig struct {
	// Primary timestamp source
	PrimarySource    TimestampSource
	BackupSource     TimestampSource
	
	// NIC configuration
	NICDevice        string    // Network interface device
	EnableNICRx      bool      // Enable RX timestamping
	EnableNICTx      bool      // Enable TX timestamping
	NICClockID       int       // Hardware clock ID
	
	// PTP configuration
	EnablePTP        bool      // Enable PTP synchronization
	PTPDomain        uint8     // PTP domain number
	PTPInterface     string    // PTP network interface
	PTPMasterIP      string    // PTP master IP address
	
	// GPS configuration
	EnableGPS        bool      // Enable GPS synchronization
	GPSDevice        string    // GPS device path
	GPSBaudRate      int       // GPS baud rate
	
	// Synchronization
	SyncInterval     time.Duration // Clock sync interval
	MaxClockOffset   time.Duration // Maximum allowed offset
	CalibrationSize  int           // Calibration history size
	
	// Performance
	TimestampBuffer  int       // Timestamp buffer size
	WorkerThreads    int       // Number of worker threads
	CPUAffinity      []int     // CPU affinity for workers
}

// TimestampSource represents different timestamp sources
type TimestampSource int

const (
	TimestampSourceSystem TimestampSource = iota
	TimestampSourceNIC
	TimestampSourcePTP
	TimestampSourceGPS
	TimestampSourceTSC    // Time Stamp Counter
	TimestampSourceHPET   // High Precision Event Timer
)

// HardwareTimestamp represents a hardware timestamp
type HardwareTimestamp struct {
	Timestamp    uint64          // Nanoseconds since epoch
	Source       TimestampSource // Timestamp source
	Accuracy     uint32          // Accuracy in nanoseconds
	Confidence   uint8           // Confidence level (0-100)
	Flags        uint8           // Timestamp flags
	Reserved     uint16          // Reserved for alignment
}

// CalibrationPoint represents a clock calibration point
type CalibrationPoint struct {
	SystemTime   uint64 // System clock time
	HardwareTime uint64 // Hardware clock time
	Offset       int64  // Calculated offset
	Drift        int64  // Calculated drift
	Accuracy     uint32 // Measurement accuracy
	Timestamp    uint64 // Calibration timestamp
}

// NIC timestamp interface
type NICTimestampInterface interface {
	Initialize(device string) error
	EnableRxTimestamp() error
	EnableTxTimestamp() error
	GetRxTimestamp(packetID uint64) (*HardwareTimestamp, error)
	GetTxTimestamp(packetID uint64) (*HardwareTimestamp, error)
	GetClockTime() (*HardwareTimestamp, error)
	Close() error
}

// PTP interface
type PTPInterface interface {
	Initialize(config *PTPConfig) error
	StartSynchronization() error
	StopSynchronization() error
	GetMasterOffset() (time.Duration, error)
	GetClockTime() (*HardwareTimestamp, error)
	IsLocked() bool
	Close() error
}

// GPS interface
type GPSInterface interface {
	Initialize(device string, baudRate int) error
	StartReceiving() error
	StopReceiving() error
	GetTime() (*HardwareTimestamp, error)
	GetPosition() (*GPSPosition, error)
	IsLocked() bool
	Close() error
}

// PTPConfig holds PTP configuration
type PTPConfig struct {
	Domain      uint8
	Interface   string
	MasterIP    string
	SyncInterval time.Duration
}

// GPSPosition represents GPS position
type GPSPosition struct {
	Latitude  float64
	Longitude float64
	Altitude  float64
	Accuracy  float32
}

// NewHardwareTimestampEngine creates a new hardware timestamp engine
func NewHardwareTimestampEngine(config *TimestampConfig) (*HardwareTimestampEngine, error) {
	engine := &HardwareTimestampEngine{
		config:           config,
		primarySource:    config.PrimarySource,
		backupSource:     config.BackupSource,
		syncInterval:     config.SyncInterval,
		calibrationData:  make([]CalibrationPoint, 0, config.CalibrationSize),
		tracer:           otel.Tracer("hft.hardware.timestamp"),
		stopChan:         make(chan struct{}),
	}
	
	return engine, nil
}

// Initialize initializes the hardware timestamp engine
func (engine *HardwareTimestampEngine) Initialize() error {
	_, span := engine.tracer.Start(context.Background(), "HardwareTimestampEngine.Initialize")
	defer span.End()
	
	// Initialize NIC timestamping if enabled
	if engine.config.EnableNICRx || engine.config.EnableNICTx {
		if err := engine.initializeNICTimestamping(); err != nil {
			span.RecordError(err)
			return fmt.Errorf("failed to initialize NIC timestamping: %w", err)
		}
	}
	
	// Initialize PTP if enabled
	if engine.config.EnablePTP {
		if err := engine.initializePTP(); err != nil {
			span.RecordError(err)
			return fmt.Errorf("failed to initialize PTP: %w", err)
		}
	}
	
	// Initialize GPS if enabled
	if engine.config.EnableGPS {
		if err := engine.initializeGPS(); err != nil {
			span.RecordError(err)
			return fmt.Errorf("failed to initialize GPS: %w", err)
		}
	}
	
	// Perform initial calibration
	if err := engine.performInitialCalibration(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to perform initial calibration: %w", err)
	}
	
	atomic.StoreInt32(&engine.isInitialized, 1)
	
	span.SetAttributes(
		attribute.String("primary_source", engine.timestampSourceToString(engine.primarySource)),
		attribute.String("backup_source", engine.timestampSourceToString(engine.backupSource)),
		attribute.Bool("nic_enabled", engine.config.EnableNICRx || engine.config.EnableNICTx),
		attribute.Bool("ptp_enabled", engine.config.EnablePTP),
		attribute.Bool("gps_enabled", engine.config.EnableGPS),
	)
	
	return nil
}

// Start starts the hardware timestamp engine
func (engine *HardwareTimestampEngine) Start() error {
	if atomic.LoadInt32(&engine.isInitialized) == 0 {
		return fmt.Errorf("timestamp engine not initialized")
	}
	
	if atomic.LoadInt32(&engine.isRunning) == 1 {
		return fmt.Errorf("timestamp engine already running")
	}
	
	_, span := engine.tracer.Start(context.Background(), "HardwareTimestampEngine.Start")
	defer span.End()
	
	atomic.StoreInt32(&engine.isRunning, 1)
	
	// Start synchronization worker
	engine.workers.Add(1)
	go engine.synchronizationWorker()
	
	// Start calibration worker
	engine.workers.Add(1)
	go engine.calibrationWorker()
	
	// Start monitoring worker
	engine.workers.Add(1)
	go engine.monitoringWorker()
	
	span.SetAttributes(attribute.Bool("started", true))
	return nil
}

// Stop stops the hardware timestamp engine
func (engine *HardwareTimestampEngine) Stop() error {
	if atomic.LoadInt32(&engine.isRunning) == 0 {
		return nil // Already stopped
	}
	
	_, span := engine.tracer.Start(context.Background(), "HardwareTimestampEngine.Stop")
	defer span.End()
	
	atomic.StoreInt32(&engine.isRunning, 0)
	
	// Signal workers to stop
	close(engine.stopChan)
	
	// Wait for workers to finish
	engine.workers.Wait()
	
	span.SetAttributes(attribute.Bool("stopped", true))
	return nil
}

// GetTimestamp returns a hardware timestamp
func (engine *HardwareTimestampEngine) GetTimestamp() (*HardwareTimestamp, error) {
	if atomic.LoadInt32(&engine.isRunning) == 0 {
		return nil, fmt.Errorf("timestamp engine not running")
	}
	
	// Try primary source first
	if atomic.LoadInt32(&engine.currentSource) == 0 {
		timestamp, err := engine.getTimestampFromSource(engine.primarySource)
		if err == nil {
			atomic.AddUint64(&engine.timestampCount, 1)
			return engine.calibrateTimestamp(timestamp), nil
		}
		
		// Primary failed, switch to backup
		atomic.StoreInt32(&engine.currentSource, 1)
		atomic.AddUint64(&engine.errorCount, 1)
	}
	
	// Try backup source
	timestamp, err := engine.getTimestampFromSource(engine.backupSource)
	if err != nil {
		atomic.AddUint64(&engine.errorCount, 1)
		return nil, fmt.Errorf("both timestamp sources failed: %w", err)
	}
	
	atomic.AddUint64(&engine.timestampCount, 1)
	return engine.calibrateTimestamp(timestamp), nil
}

// GetRxTimestamp returns RX timestamp for a packet
func (engine *HardwareTimestampEngine) GetRxTimestamp(packetID uint64) (*HardwareTimestamp, error) {
	if engine.nicInterface == nil {
		return nil, fmt.Errorf("NIC timestamping not enabled")
	}
	
	timestamp, err := engine.nicInterface.GetRxTimestamp(packetID)
	if err != nil {
		return nil, fmt.Errorf("failed to get RX timestamp: %w", err)
	}
	
	return engine.calibrateTimestamp(timestamp), nil
}

// GetTxTimestamp returns TX timestamp for a packet
func (engine *HardwareTimestampEngine) GetTxTimestamp(packetID uint64) (*HardwareTimestamp, error) {
	if engine.nicInterface == nil {
		return nil, fmt.Errorf("NIC timestamping not enabled")
	}
	
	timestamp, err := engine.nicInterface.GetTxTimestamp(packetID)
	if err != nil {
		return nil, fmt.Errorf("failed to get TX timestamp: %w", err)
	}
	
	return engine.calibrateTimestamp(timestamp), nil
}

// GetStatistics returns timestamp engine statistics
func (engine *HardwareTimestampEngine) GetStatistics() map[string]interface{} {
	return map[string]interface{}{
		"timestamp_count":   atomic.LoadUint64(&engine.timestampCount),
		"sync_count":        atomic.LoadUint64(&engine.syncCount),
		"error_count":       atomic.LoadUint64(&engine.errorCount),
		"clock_offset_ns":   atomic.LoadInt64(&engine.clockOffset),
		"clock_drift_ns":    atomic.LoadInt64(&engine.clockDrift),
		"avg_accuracy_ns":   atomic.LoadInt64(&engine.avgAccuracy),
		"max_accuracy_ns":   atomic.LoadInt64(&engine.maxAccuracy),
		"current_source":    engine.timestampSourceToString(engine.getCurrentSource()),
		"last_sync_time":    atomic.LoadInt64(&engine.lastSyncTime),
		"is_running":        atomic.LoadInt32(&engine.isRunning) == 1,
	}
}

// Worker functions

func (engine *HardwareTimestampEngine) synchronizationWorker() {
	defer engine.workers.Done()
	
	ticker := time.NewTicker(engine.syncInterval)
	defer ticker.Stop()
	
	for {
		select {
		case <-engine.stopChan:
			return
		case <-ticker.C:
			engine.performSynchronization()
		}
	}
}

func (engine *HardwareTimestampEngine) calibrationWorker() {
	defer engine.workers.Done()
	
	ticker := time.NewTicker(10 * time.Second) // Calibrate every 10 seconds
	defer ticker.Stop()
	
	for {
		select {
		case <-engine.stopChan:
			return
		case <-ticker.C:
			engine.performCalibration()
		}
	}
}

func (engine *HardwareTimestampEngine) monitoringWorker() {
	defer engine.workers.Done()
	
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()
	
	for {
		select {
		case <-engine.stopChan:
			return
		case <-ticker.C:
			engine.monitorSources()
		}
	}
}

// Helper functions

func (engine *HardwareTimestampEngine) initializeNICTimestamping() error {
	// This would initialize NIC hardware timestamping
	// For now, this is a placeholder
	return nil
}

func (engine *HardwareTimestampEngine) initializePTP() error {
	// This would initialize PTP synchronization
	// For now, this is a placeholder
	return nil
}

func (engine *HardwareTimestampEngine) initializeGPS() error {
	// This would initialize GPS synchronization
	// For now, this is a placeholder
	return nil
}

func (engine *HardwareTimestampEngine) performInitialCalibration() error {
	// Perform initial clock calibration
	systemTime := uint64(time.Now().UnixNano())
	
	// Get hardware time from primary source
	hwTimestamp, err := engine.getTimestampFromSource(engine.primarySource)
	if err != nil {
		return fmt.Errorf("failed to get hardware timestamp for calibration: %w", err)
	}
	
	// Calculate initial offset
	offset := int64(systemTime) - int64(hwTimestamp.Timestamp)
	atomic.StoreInt64(&engine.clockOffset, offset)
	
	// Add calibration point
	calibrationPoint := CalibrationPoint{
		SystemTime:   systemTime,
		HardwareTime: hwTimestamp.Timestamp,
		Offset:       offset,
		Drift:        0,
		Accuracy:     hwTimestamp.Accuracy,
		Timestamp:    systemTime,
	}
	
	engine.calibrationMutex.Lock()
	engine.calibrationData = append(engine.calibrationData, calibrationPoint)
	engine.calibrationMutex.Unlock()
	
	return nil
}

func (engine *HardwareTimestampEngine) performSynchronization() {
	// Synchronize with external time sources (PTP, GPS)
	if engine.config.EnablePTP && engine.ptpInterface != nil {
		if engine.ptpInterface.IsLocked() {
			offset, err := engine.ptpInterface.GetMasterOffset()
			if err == nil {
				atomic.StoreInt64(&engine.clockOffset, int64(offset))
				atomic.StoreInt64(&engine.lastSyncTime, time.Now().UnixNano())
				atomic.AddUint64(&engine.syncCount, 1)
			}
		}
	}
	
	if engine.config.EnableGPS && engine.gpsInterface != nil {
		if engine.gpsInterface.IsLocked() {
			gpsTime, err := engine.gpsInterface.GetTime()
			if err == nil {
				systemTime := uint64(time.Now().UnixNano())
				offset := int64(gpsTime.Timestamp) - int64(systemTime)
				atomic.StoreInt64(&engine.clockOffset, offset)
				atomic.StoreInt64(&engine.lastSyncTime, time.Now().UnixNano())
				atomic.AddUint64(&engine.syncCount, 1)
			}
		}
	}
}

func (engine *HardwareTimestampEngine) performCalibration() {
	// Perform clock drift calibration
	systemTime := uint64(time.Now().UnixNano())
	
	hwTimestamp, err := engine.getTimestampFromSource(engine.primarySource)
	if err != nil {
		return
	}
	
	offset := int64(systemTime) - int64(hwTimestamp.Timestamp)
	
	// Calculate drift if we have previous calibration data
	engine.calibrationMutex.RLock()
	dataLen := len(engine.calibrationData)
	engine.calibrationMutex.RUnlock()
	
	if dataLen > 0 {
		engine.calibrationMutex.RLock()
		lastPoint := engine.calibrationData[dataLen-1]
		engine.calibrationMutex.RUnlock()
		
		timeDiff := int64(systemTime - lastPoint.SystemTime)
		offsetDiff := offset - lastPoint.Offset
		
		if timeDiff > 0 {
			drift := (offsetDiff * 1000000000) / timeDiff // drift per second
			atomic.StoreInt64(&engine.clockDrift, drift)
		}
	}
	
	// Add new calibration point
	calibrationPoint := CalibrationPoint{
		SystemTime:   systemTime,
		HardwareTime: hwTimestamp.Timestamp,
		Offset:       offset,
		Drift:        atomic.LoadInt64(&engine.clockDrift),
		Accuracy:     hwTimestamp.Accuracy,
		Timestamp:    systemTime,
	}
	
	engine.calibrationMutex.Lock()
	engine.calibrationData = append(engine.calibrationData, calibrationPoint)
	
	// Keep only recent calibration data
	if len(engine.calibrationData) > engine.config.CalibrationSize {
		engine.calibrationData = engine.calibrationData[1:]
	}
	engine.calibrationMutex.Unlock()
}

func (engine *HardwareTimestampEngine) monitorSources() {
	// Monitor timestamp source health and switch if necessary
	// This would check source availability and accuracy
}

func (engine *HardwareTimestampEngine) getTimestampFromSource(source TimestampSource) (*HardwareTimestamp, error) {
	switch source {
	case TimestampSourceSystem:
		return &HardwareTimestamp{
			Timestamp:  uint64(time.Now().UnixNano()),
			Source:     TimestampSourceSystem,
			Accuracy:   1000, // 1Î¼s accuracy for system clock
			Confidence: 80,
		}, nil
		
	case TimestampSourceNIC:
		if engine.nicInterface != nil {
			return engine.nicInterface.GetClockTime()
		}
		return nil, fmt.Errorf("NIC interface not available")
		
	case TimestampSourcePTP:
		if engine.ptpInterface != nil {
			return engine.ptpInterface.GetClockTime()
		}
		return nil, fmt.Errorf("PTP interface not available")
		
	case TimestampSourceGPS:
		if engine.gpsInterface != nil {
			return engine.gpsInterface.GetTime()
		}
		return nil, fmt.Errorf("GPS interface not available")
		
	case TimestampSourceTSC:
		return engine.getTSCTimestamp()
		
	case TimestampSourceHPET:
		return engine.getHPETTimestamp()
		
	default:
		return nil, fmt.Errorf("unknown timestamp source: %d", source)
	}
}

func (engine *HardwareTimestampEngine) calibrateTimestamp(timestamp *HardwareTimestamp) *HardwareTimestamp {
	// Apply calibration offset and drift correction
	offset := atomic.LoadInt64(&engine.clockOffset)
	drift := atomic.LoadInt64(&engine.clockDrift)
	
	// Apply offset
	calibratedTime := int64(timestamp.Timestamp) + offset
	
	// Apply drift correction (simplified)
	if drift != 0 {
		timeSinceSync := time.Now().UnixNano() - atomic.LoadInt64(&engine.lastSyncTime)
		driftCorrection := (drift * timeSinceSync) / 1000000000 // drift per second
		calibratedTime += driftCorrection
	}
	
	timestamp.Timestamp = uint64(calibratedTime)
	return timestamp
}

func (engine *HardwareTimestampEngine) getCurrentSource() TimestampSource {
	if atomic.LoadInt32(&engine.currentSource) == 0 {
		return engine.primarySource
	}
	return engine.backupSource
}

func (engine *HardwareTimestampEngine) timestampSourceToString(source TimestampSource) string {
	switch source {
	case TimestampSourceSystem:
		return "system"
	case TimestampSourceNIC:
		return "nic"
	case TimestampSourcePTP:
		return "ptp"
	case TimestampSourceGPS:
		return "gps"
	case TimestampSourceTSC:
		return "tsc"
	case TimestampSourceHPET:
		return "hpet"
	default:
		return "unknown"
	}
}

func (engine *HardwareTimestampEngine) getTSCTimestamp() (*HardwareTimestamp, error) {
	// This would read the Time Stamp Counter (TSC)
	// For now, return system time
	return &HardwareTimestamp{
		Timestamp:  uint64(time.Now().UnixNano()),
		Source:     TimestampSourceTSC,
		Accuracy:   10, // 10ns accuracy for TSC
		Confidence: 95,
	}, nil
}

func (engine *HardwareTimestampEngine) getHPETTimestamp() (*HardwareTimestamp, error) {
	// This would read the High Precision Event Timer (HPET)
	// For now, return system time
	return &HardwareTimestamp{
		Timestamp:  uint64(time.Now().UnixNano()),
		Source:     TimestampSourceHPET,
		Accuracy:   100, // 100ns accuracy for HPET
		Confidence: 90,
	}, nil
}

// Close closes the hardware timestamp engine
func (engine *HardwareTimestampEngine) Close() error {
	// Stop processing
	engine.Stop()
	
	// Close interfaces
	if engine.nicInterface != nil {
		engine.nicInterface.Close()
	}
	if engine.ptpInterface != nil {
		engine.ptpInterface.Close()
	}
	if engine.gpsInterface != nil {
		engine.gpsInterface.Close()
	}
	
	return nil
}
