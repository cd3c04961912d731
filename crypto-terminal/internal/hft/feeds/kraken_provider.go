package feeds

import (
	"context"
	"time"

	"github.com/DimaJoyti/go-coffee/crypto-terminal/internal/config"
	"github.com/DimaJoyti/go-coffee/crypto-terminal/internal/models"
)

// KrakenProvider implements Kraken WebSocket feeds
type KrakenProvider struct {
	config        *config.Config
	tickChan      chan *models.MarketDataTick
	orderBookChan chan *models.OrderBook
	isConnected   bool
}

// NewKrakenProvider creates a new Kraken provider
func NewKrakenProvider(cfg *config.Config) (*KrakenProvider, error) {
	return &KrakenProvider{
		config:        cfg,
		tickChan:      make(chan *models.MarketDataTick, 10000),
		orderBookChan: make(chan *models.OrderBook, 1000),
	}, nil
}

// Connect establishes connection to Kraken
func (p *KrakenProvider) Connect(ctx context.Context) error {
	// Placeholder implementation
	p.isConnected = true
	return nil
}

// Disconnect closes the connection
func (p *KrakenProvider) Disconnect() error {
	p.isConnected = false
	return nil
}

// Subscribe subscribes to market data
func (p *KrakenProvider) Subscribe(symbols []string) error {
	// Placeholder implementation
	return nil
}

// Unsubscribe unsubscribes from market data
func (p *KrakenProvider) Unsubscribe(symbols []string) error {
	// Placeholder implementation
	return nil
}

// GetTickChannel returns the tick data channel
func (p *KrakenProvider) GetTickChannel() <-chan *models.MarketDataTick {
	return p.tickChan
}

// GetOrderBookChannel returns the order book data channel
func (p *KrakenProvider) GetOrderBookChannel() <-chan *models.OrderBook {
	return p.orderBookChan
}

// IsConnected returns the connection status
func (p *KrakenProvider) IsConnected() bool {
	return p.isConnected
}

// GetLatency returns the current latency
func (p *KrakenProvider) GetLatency() time.Duration {
	return 0
}
