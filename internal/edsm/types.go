package edsm

import "github.com/skelsey/galmarket/internal/model"

// sphereSystem is an entry from /api-v1/sphere-systems or cube-systems.
type sphereSystem struct {
	Name     string       `json:"name"`
	Distance float64      `json:"distance"`
	Coords   model.Coords `json:"coords"`
}

// coordSystem is an entry from /api-v1/systems.
type coordSystem struct {
	Name   string       `json:"name"`
	Coords model.Coords `json:"coords"`
}

// stationsResponse from /api-system-v1/stations.
type stationsResponse struct {
	ID       int64         `json:"id"`
	Name     string        `json:"name"`
	Stations []wireStation `json:"stations"`
}

type wireStation struct {
	ID                int64          `json:"id"`
	MarketID          int64          `json:"marketId"`
	Name              string         `json:"name"`
	Type              string         `json:"type"`
	DistanceToArrival float64        `json:"distanceToArrival"`
	HaveMarket        bool           `json:"haveMarket"`
	UpdateTime        wireUpdateTime `json:"updateTime"`
}

// wireUpdateTime timestamps are "2006-01-02 15:04:05" in UTC.
type wireUpdateTime struct {
	Information string `json:"information"`
	Market      string `json:"market"`
	Shipyard    string `json:"shipyard"`
	Outfitting  string `json:"outfitting"`
}

// marketResponse from /api-system-v1/stations/market.
type marketResponse struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	MarketID    int64           `json:"marketId"`
	SID         int64           `json:"sId"`
	SName       string          `json:"sName"`
	Commodities []wireCommodity `json:"commodities"`
}

type wireCommodity struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	BuyPrice  int64  `json:"buyPrice"`
	SellPrice int64  `json:"sellPrice"`
	Stock     int64  `json:"stock"`
	Demand    int64  `json:"demand"`
}

// Traffic is the ship traffic report for a system.
type Traffic struct {
	Total int64 `json:"total"`
	Week  int64 `json:"week"`
	Day   int64 `json:"day"`
}

type trafficResponse struct {
	ID      int64   `json:"id"`
	Name    string  `json:"name"`
	Traffic Traffic `json:"traffic"`
}

// Body is a celestial body in a system.
type Body struct {
	ID                int64   `json:"id"`
	Name              string  `json:"name"`
	Type              string  `json:"type"`
	SubType           string  `json:"subType"`
	DistanceToArrival float64 `json:"distanceToArrival"`
	IsMainStar        bool    `json:"isMainStar"`
}

type bodiesResponse struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Bodies []Body `json:"bodies"`
}
