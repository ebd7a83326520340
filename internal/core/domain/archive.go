package domain

import "time"

// Transport names the entry point a result was produced by.
type Transport string

const (
	TransportHTTP  Transport = "http"
	TransportQueue Transport = "queue"
	TransportGRPC  Transport = "grpc"
	TransportCLI   Transport = "cli"
)

// ArchivedResult is a scored result kept by the result archive.
type ArchivedResult struct {
	ID            string            `json:"id"`
	WalletAddress string            `json:"wallet_address"`
	Transport     Transport         `json:"transport"`
	Result        WalletScoreResult `json:"result"`
	CreatedAt     time.Time         `json:"created_at"`
}
