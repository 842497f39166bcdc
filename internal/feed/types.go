package feed

import (
	"encoding/json"
	"time"
)

// CommoditySchema identifies the one event schema this consumer handles.
const CommoditySchema = "https://eddn.edcd.io/schemas/commodity/3"

// Envelope is the outer shape of every relay event.
type Envelope struct {
	SchemaRef string          `json:"$schemaRef"`
	Header    Header          `json:"header"`
	Message   json.RawMessage `json:"message"`
}

// Header carries relay metadata.
type Header struct {
	UploaderID       string `json:"uploaderID"`
	SoftwareName     string `json:"softwareName"`
	SoftwareVersion  string `json:"softwareVersion"`
	GatewayTimestamp string `json:"gatewayTimestamp"`
}

// CommodityMessage is the payload of a commodity schema event.
type CommodityMessage struct {
	SystemName  string          `json:"systemName"`
	StationName string          `json:"stationName"`
	StationType string          `json:"stationType,omitempty"`
	MarketID    int64           `json:"marketId"`
	Timestamp   time.Time       `json:"timestamp"`
	Commodities []FeedCommodity `json:"commodities"`
}

// FeedCommodity is one market listing in a commodity event.
type FeedCommodity struct {
	Name      string `json:"name"`
	BuyPrice  int64  `json:"buyPrice"`
	SellPrice int64  `json:"sellPrice"`
	Stock     int64  `json:"stock"`
	Demand    int64  `json:"demand"`
}
