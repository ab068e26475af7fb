package schedule

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/rs/zerolog"

	"github.com/luejerry/autoclocker/internal/config"
)

// Remote schedules the clock-out with the AWS-hosted autoclocker service
// behind API Gateway. Requests are SigV4-signed with IAM keys authorized to
// invoke the API. The service holds the user's portal credentials encrypted
// under a KMS data key; the wrapped key saved in local config is sent along
// so the service can decrypt them when the job fires.
type Remote struct {
	region        string
	schedulerURL  string
	saveCredsURL  string
	userID        string
	wrappedKey    string
	http          *http.Client
	credsProvider aws.CredentialsProvider
	signer        *v4.Signer
	log           zerolog.Logger
}

func NewRemote(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Remote, error) {
	if !cfg.RemoteConfigured() {
		return nil, errors.New("remote scheduler is not configured: set AWSRegion, AWSHost and SchedulerEndpoint")
	}

	var provider aws.CredentialsProvider
	if cfg.AWSAccessKey != "" {
		provider = credentials.NewStaticCredentialsProvider(cfg.AWSAccessKey, cfg.AWSSecretKey, "")
	} else {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			return nil, fmt.Errorf("loading AWS credentials: %w", err)
		}
		provider = awsCfg.Credentials
	}

	return &Remote{
		region:        cfg.AWSRegion,
		schedulerURL:  "https://" + cfg.AWSHost + cfg.SchedulerEndpoint,
		saveCredsURL:  "https://" + cfg.AWSHost + cfg.SaveCredsEndpoint,
		userID:        cfg.UserID,
		wrappedKey:    cfg.SchedulerKey,
		http:          &http.Client{Timeout: 30 * time.Second},
		credsProvider: provider,
		signer:        v4.NewSigner(),
		log:           log,
	}, nil
}

// ScheduleOnce asks the service to clock the user out at the given instant.
// The service takes a minute offset rather than an absolute time; the job ID
// is the service's confirmed UTC schedule time.
func (r *Remote) ScheduleOnce(ctx context.Context, at time.Time) (string, error) {
	minutes := int64(time.Until(at).Minutes())
	if minutes < 0 {
		return "", &ScheduleError{Backend: "remote", Err: errors.New("target time is in the past")}
	}
	if r.userID == "" || r.wrappedKey == "" {
		return "", &ScheduleError{Backend: "remote",
			Err: errors.New("no saved service credentials: run savecreds --remote first")}
	}

	body, err := json.Marshal(map[string]any{
		"UserId":       r.userID,
		"Key":          r.wrappedKey,
		"ScheduleTime": minutes,
	})
	if err != nil {
		return "", err
	}

	respBody, err := r.post(ctx, r.schedulerURL, body)
	if err != nil {
		return "", &ScheduleError{Backend: "remote", Err: err}
	}

	var resp struct {
		ScheduleTime string `json:"ScheduleTime"`
	}
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return "", &ScheduleError{Backend: "remote", Err: fmt.Errorf("unexpected response: %w", err)}
	}
	confirmed, err := time.ParseInLocation("2006-01-02T15:04:05", resp.ScheduleTime, time.UTC)
	if err != nil {
		return "", &ScheduleError{Backend: "remote",
			Err: fmt.Errorf("unparseable confirmed time %q", resp.ScheduleTime)}
	}
	r.log.Debug().Time("confirmed", confirmed).Msg("remote clock-out scheduled")
	return confirmed.Format(time.RFC3339), nil
}

// Cancel is not supported by the service; a new ScheduleOnce for the same
// user overwrites the pending job instead.
func (r *Remote) Cancel(ctx context.Context, jobID string) error {
	return &ScheduleError{Backend: "remote", Err: ErrCancelUnsupported}
}

// SaveCreds stores the portal credentials with the service's credential
// store. The returned wrapped data key must be persisted and presented on
// every ScheduleOnce; saving again rotates the key and invalidates old ones.
func (r *Remote) SaveCreds(ctx context.Context, user string, password []byte) (string, error) {
	body, err := json.Marshal(map[string]string{
		"UserId":   user,
		"Password": string(password),
	})
	if err != nil {
		return "", err
	}

	respBody, err := r.post(ctx, r.saveCredsURL, body)
	if err != nil {
		return "", fmt.Errorf("saving credentials with service: %w", err)
	}

	var resp struct {
		UserID string `json:"UserId"`
		Key    string `json:"Key"`
	}
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return "", fmt.Errorf("unexpected savecreds response: %w", err)
	}
	if resp.Key == "" {
		return "", errors.New("service did not return a credential key")
	}
	return resp.Key, nil
}

func (r *Remote) post(ctx context.Context, url string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	awsCreds, err := r.credsProvider.Retrieve(ctx)
	if err != nil {
		return nil, fmt.Errorf("retrieving AWS credentials: %w", err)
	}
	hash := sha256.Sum256(body)
	if err := r.signer.SignHTTP(ctx, awsCreds, req, hex.EncodeToString(hash[:]),
		"execute-api", r.region, time.Now()); err != nil {
		return nil, fmt.Errorf("signing request: %w", err)
	}

	resp, err := r.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("service returned %s: %s", resp.Status, string(respBody))
	}
	return respBody, nil
}
