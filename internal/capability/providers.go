package capability

import (
	"context"
	"fmt"
	"time"
)

// HTTPForecastProvider 需求预测服务客户端
type HTTPForecastProvider struct {
	c *httpClient
}

func NewHTTPForecastProvider(baseURL string, timeout time.Duration) *HTTPForecastProvider {
	return &HTTPForecastProvider{c: newHTTPClient(baseURL, "forecast", timeout)}
}

func (p *HTTPForecastProvider) Predict(ctx context.Context, req ForecastRequest) (*ForecastResult, error) {
	var result ForecastResult
	if err := p.c.postJSON(ctx, "/v1/forecast", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// HTTPVerificationProvider 里程碑验证服务客户端
type HTTPVerificationProvider struct {
	c *httpClient
}

func NewHTTPVerificationProvider(baseURL string, timeout time.Duration) *HTTPVerificationProvider {
	return &HTTPVerificationProvider{c: newHTTPClient(baseURL, "verify", timeout)}
}

func (p *HTTPVerificationProvider) Verify(ctx context.Context, req VerifyRequest) (*VerifyResult, error) {
	var result VerifyResult
	if err := p.c.postJSON(ctx, "/v1/verify", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// HTTPDisbursementProvider 放款服务客户端
type HTTPDisbursementProvider struct {
	c *httpClient
}

func NewHTTPDisbursementProvider(baseURL string, timeout time.Duration) *HTTPDisbursementProvider {
	return &HTTPDisbursementProvider{c: newHTTPClient(baseURL, "disburse", timeout)}
}

func (p *HTTPDisbursementProvider) Disburse(ctx context.Context, req DisburseRequest) (*DisburseResult, error) {
	var result DisburseResult
	if err := p.c.postJSON(ctx, "/v1/disburse", req, &result); err != nil {
		return nil, err
	}
	if result.TxRef == "" {
		return nil, &TransientProviderError{Stage: "disburse", Err: fmt.Errorf("provider returned empty tx ref")}
	}
	return &result, nil
}

// HTTPReportProvider 影响力报告服务客户端
type HTTPReportProvider struct {
	c *httpClient
}

func NewHTTPReportProvider(baseURL string, timeout time.Duration) *HTTPReportProvider {
	return &HTTPReportProvider{c: newHTTPClient(baseURL, "report", timeout)}
}

func (p *HTTPReportProvider) Generate(ctx context.Context, req ReportRequest) (*ReportResult, error) {
	var result ReportResult
	if err := p.c.postJSON(ctx, "/v1/report", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// HTTPResearchProvider NGO检索服务客户端
type HTTPResearchProvider struct {
	c *httpClient
}

func NewHTTPResearchProvider(baseURL string, timeout time.Duration) *HTTPResearchProvider {
	return &HTTPResearchProvider{c: newHTTPClient(baseURL, "research", timeout)}
}

func (p *HTTPResearchProvider) Research(ctx context.Context, query ResearchQuery) ([]Candidate, error) {
	var candidates []Candidate
	if err := p.c.postJSON(ctx, "/v1/research", query, &candidates); err != nil {
		return nil, err
	}
	return candidates, nil
}

// HTTPMonitorProvider NGO监控服务客户端
type HTTPMonitorProvider struct {
	c *httpClient
}

func NewHTTPMonitorProvider(baseURL string, timeout time.Duration) *HTTPMonitorProvider {
	return &HTTPMonitorProvider{c: newHTTPClient(baseURL, "monitor", timeout)}
}

func (p *HTTPMonitorProvider) Scan(ctx context.Context, ngoID string) ([]Finding, error) {
	var findings []Finding
	if err := p.c.getJSON(ctx, "/v1/findings/"+ngoID, &findings); err != nil {
		return nil, err
	}
	return findings, nil
}

// HTTPDonationSource 捐款检测服务客户端
type HTTPDonationSource struct {
	c *httpClient
}

func NewHTTPDonationSource(baseURL string, timeout time.Duration) *HTTPDonationSource {
	return &HTTPDonationSource{c: newHTTPClient(baseURL, "tracker", timeout)}
}

func (p *HTTPDonationSource) Poll(ctx context.Context) ([]TrackedDonation, error) {
	var donations []TrackedDonation
	if err := p.c.getJSON(ctx, "/v1/donations/new", &donations); err != nil {
		return nil, err
	}
	return donations, nil
}
