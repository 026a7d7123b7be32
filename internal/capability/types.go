package capability

import (
	"context"
	"time"
)

// ForecastRequest 需求预测请求
type ForecastRequest struct {
	ProjectID      string  `json:"project_id"`
	HistoricalData string  `json:"historical_data"`
	DonatedAmount  float64 `json:"donated_amount"`
}

// ForecastResult 需求预测结果
type ForecastResult struct {
	PredictedAmount float64 `json:"predicted_amount"`
	Timeline        string  `json:"timeline"`
	Confidence      float64 `json:"confidence"`
}

// VerifyRequest 里程碑验证请求
type VerifyRequest struct {
	MilestoneID string   `json:"milestone_id"`
	ProjectID   string   `json:"project_id"`
	ProofRefs   []string `json:"proof_refs"`
}

// VerifyResult 里程碑验证结果
type VerifyResult struct {
	Verified bool   `json:"verified"`
	Comments string `json:"comments"`
}

// DisburseRequest 放款请求
type DisburseRequest struct {
	MilestoneID string  `json:"milestone_id"`
	ProjectID   string  `json:"project_id"`
	Wallet      string  `json:"wallet"`
	Amount      float64 `json:"amount"`
}

// DisburseResult 放款结果
type DisburseResult struct {
	TxRef string `json:"tx_ref"`
}

// ReportRequest 影响力报告请求
type ReportRequest struct {
	DonorID    string   `json:"donor_id"`
	ProjectID  string   `json:"project_id"`
	Amount     float64  `json:"amount"`
	Milestones []string `json:"milestones"`
}

// ReportResult 影响力报告结果
type ReportResult struct {
	Narrative string `json:"narrative"`
}

// ResearchQuery NGO检索请求
type ResearchQuery struct {
	Category string `json:"category"`
	Region   string `json:"region"`
}

// Candidate NGO候选
type Candidate struct {
	Name       string  `json:"name"`
	Country    string  `json:"country"`
	Wallet     string  `json:"wallet"`
	TrustScore float64 `json:"trust_score"`
}

// Finding NGO负面发现
type Finding struct {
	Source  string `json:"source"`
	Summary string `json:"summary"`
}

// TrackedDonation 链上检测到的捐款
type TrackedDonation struct {
	ID        string    `json:"id"`
	DonorID   string    `json:"donor_id"`
	Amount    float64   `json:"amount"`
	Currency  string    `json:"currency"`
	TxRef     string    `json:"tx_ref"`
	Timestamp time.Time `json:"timestamp"`
	ProjectID string    `json:"project_id"`
}

// ForecastProvider 需求预测能力
type ForecastProvider interface {
	Predict(ctx context.Context, req ForecastRequest) (*ForecastResult, error)
}

// VerificationProvider 里程碑验证能力
type VerificationProvider interface {
	Verify(ctx context.Context, req VerifyRequest) (*VerifyResult, error)
}

// DisbursementProvider 放款能力
type DisbursementProvider interface {
	Disburse(ctx context.Context, req DisburseRequest) (*DisburseResult, error)
}

// ReportProvider 影响力报告能力
type ReportProvider interface {
	Generate(ctx context.Context, req ReportRequest) (*ReportResult, error)
}

// ResearchProvider NGO检索能力
type ResearchProvider interface {
	Research(ctx context.Context, query ResearchQuery) ([]Candidate, error)
}

// MonitorProvider NGO监控能力
type MonitorProvider interface {
	Scan(ctx context.Context, ngoID string) ([]Finding, error)
}

// DonationSource 捐款检测能力
type DonationSource interface {
	Poll(ctx context.Context) ([]TrackedDonation, error)
}
