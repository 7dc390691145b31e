package mailer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/aws/smithy-go"
)

const charset = "UTF-8"

type sesAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
	GetAccount(ctx context.Context, params *sesv2.GetAccountInput, optFns ...func(*sesv2.Options)) (*sesv2.GetAccountOutput, error)
}

// SESSender delivers messages through Amazon SES. The SDK retryer is limited
// to a single attempt; retries are driven by the Mailer.
type SESSender struct {
	client           sesAPI
	configurationSet string
}

func NewSESSender(ctx context.Context, region, configurationSet string) (*SESSender, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(region),
		config.WithRetryMaxAttempts(1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	return &SESSender{
		client:           sesv2.NewFromConfig(awsCfg),
		configurationSet: configurationSet,
	}, nil
}

func (s *SESSender) Send(ctx context.Context, msg Message) error {
	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(msg.From),
		Destination: &types.Destination{
			ToAddresses: []string{msg.To},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(msg.Subject), Charset: aws.String(charset)},
				Body: &types.Body{
					Html: &types.Content{Data: aws.String(msg.HTML), Charset: aws.String(charset)},
					Text: &types.Content{Data: aws.String(msg.Text), Charset: aws.String(charset)},
				},
			},
		},
	}

	if s.configurationSet != "" {
		input.ConfigurationSetName = aws.String(s.configurationSet)
	}

	if _, err := s.client.SendEmail(ctx, input); err != nil {
		return classifyError(err)
	}

	return nil
}

// CheckAccount verifies credentials and reachability by reading the SES
// account details.
func (s *SESSender) CheckAccount(ctx context.Context) (*AccountStatus, error) {
	out, err := s.client.GetAccount(ctx, &sesv2.GetAccountInput{})
	if err != nil {
		return nil, classifyError(err)
	}

	status := &AccountStatus{
		SendingEnabled:    out.SendingEnabled,
		ProductionAccess:  out.ProductionAccessEnabled,
		EnforcementStatus: aws.ToString(out.EnforcementStatus),
	}
	if out.SendQuota != nil {
		status.Max24HourSend = out.SendQuota.Max24HourSend
		status.MaxSendRate = out.SendQuota.MaxSendRate
		status.SentLast24Hours = out.SendQuota.SentLast24Hours
	}

	return status, nil
}

// classifyError maps SES failures onto provider error kinds.
func classifyError(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &ProviderError{Kind: KindTimeout, Err: err}
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		return &ProviderError{Kind: kindForCode(code, statusCode(err)), Code: code, Err: err}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &ProviderError{Kind: KindTimeout, Err: err}
	}

	if status := statusCode(err); status != 0 {
		return &ProviderError{Kind: kindForCode("", status), Err: err}
	}

	return &ProviderError{Kind: KindUnknown, Err: err}
}

func kindForCode(code string, status int) ErrorKind {
	switch code {
	case "ThrottlingException", "Throttling", "TooManyRequestsException":
		return KindThrottling
	case "RequestTimeout", "RequestTimeoutException":
		return KindTimeout
	case "ServiceUnavailable", "ServiceUnavailableException", "InternalFailure":
		return KindUnavailable
	case "MessageRejected", "MailFromDomainNotVerifiedException", "AccountSuspendedException", "SendingPausedException":
		return KindRejected
	case "BadRequestException", "NotFoundException", "InvalidParameterValue":
		return KindInvalid
	}

	switch {
	case status == http.StatusTooManyRequests:
		return KindThrottling
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return KindTimeout
	case status == http.StatusServiceUnavailable || status == http.StatusBadGateway:
		return KindUnavailable
	case status >= 400 && status < 500:
		return KindInvalid
	}

	return KindUnknown
}

func statusCode(err error) int {
	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		return respErr.HTTPStatusCode()
	}
	return 0
}
