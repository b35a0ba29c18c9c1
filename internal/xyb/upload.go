package xyb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"xybclock/internal/common/apierrors"
	"xybclock/internal/common/metrics"
)

// ossUserAgent is the fixed desktop WeChat user agent the mini-program sends
// to object storage, independent of the configured profile.
const ossUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/132.0.0.0 Safari/537.36 MicroMessenger/7.0.20.1781(0x6700143B) " +
	"NetType/WIFI MiniProgramEnv/Windows WindowsWechat/WMPF WindowsWechat(0x63090a13) " +
	"UnifiedPCWindowsWechat(0xf2541211) XWEB/16815"

// UploadPolicy is the one-shot object-storage credential from the policy
// endpoint. Every field is opaque to us and forwarded verbatim.
type UploadPolicy struct {
	Host         string            `json:"host"`
	Dir          string            `json:"dir"`
	Policy       string            `json:"policy"`
	AccessID     string            `json:"accessid"`
	Signature    string            `json:"signature"`
	Callback     string            `json:"callback"`
	CustomParams map[string]string `json:"customParams"`
}

// PostPolicy requests a fresh storage upload credential. Step one of the
// photo clock handshake.
func (c *Client) PostPolicy(ctx context.Context, auth *Auth) (*UploadPolicy, error) {
	fields := NewFields().
		Set("customerType", "STUDENT").
		Set("uploadType", "UPLOAD_STUDENT_CLOCK_IMGAGES").
		Set("publicRead", "true")

	req, err := c.newPost(ctx, pathPostPolicy, pageUpload, fields)
	if err != nil {
		return nil, err
	}
	c.signHeaders(req, fields.Map())
	c.authHeaders(req, auth)
	if err := c.deviceHeader(req, auth.OpenID); err != nil {
		return nil, err
	}

	env, err := c.do(c.http, req, "postPolicy")
	if err != nil {
		metrics.UploadSteps.WithLabelValues("policy", "fail").Inc()
		return nil, err
	}
	out := c.outcome(env)
	if out.Kind == SessionInvalid {
		metrics.UploadSteps.WithLabelValues("policy", "fail").Inc()
		return nil, apierrors.NewSessionInvalid(out.Msg)
	}
	if out.Kind != Success {
		metrics.UploadSteps.WithLabelValues("policy", "fail").Inc()
		return nil, apierrors.NewUploadFailed("policy", out.Msg)
	}

	var policy UploadPolicy
	if err := json.Unmarshal(env.Data, &policy); err != nil {
		metrics.UploadSteps.WithLabelValues("policy", "fail").Inc()
		return nil, apierrors.NewUploadFailed("policy", fmt.Sprintf("payload: %v", err))
	}
	if policy.Host == "" || policy.Dir == "" {
		metrics.UploadSteps.WithLabelValues("policy", "fail").Inc()
		return nil, apierrors.NewUploadFailed("policy", "payload missing host or dir")
	}
	metrics.UploadSteps.WithLabelValues("policy", "ok").Inc()
	return &policy, nil
}

// UploadImage posts the image to the storage host named by the policy and
// returns the object key for the finalize step. The key is minted under the
// policy's directory with a millisecond timestamp, matching what the
// mini-program does.
func (c *Client) UploadImage(ctx context.Context, policy *UploadPolicy, filename string, img io.Reader) (string, error) {
	key := fmt.Sprintf("%s/%d.jpg", policy.Dir, time.Now().UnixMilli())

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	form := map[string]string{
		"key":                   key,
		"policy":                policy.Policy,
		"OSSAccessKeyId":        policy.AccessID,
		"signature":             policy.Signature,
		"success_action_status": "200",
		"customerType":          policy.CustomParams["x:customer_type_key"],
		"uploadType":            policy.CustomParams["x:upload_type_key"],
		"callback":              policy.Callback,
	}
	for _, name := range []string{
		"key", "policy", "OSSAccessKeyId", "signature",
		"success_action_status", "customerType", "uploadType", "callback",
	} {
		if err := w.WriteField(name, form[name]); err != nil {
			return "", apierrors.NewUploadFailed("storage", fmt.Sprintf("form build: %v", err))
		}
	}
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return "", apierrors.NewUploadFailed("storage", fmt.Sprintf("form build: %v", err))
	}
	if _, err := io.Copy(part, img); err != nil {
		return "", apierrors.NewUploadFailed("storage", fmt.Sprintf("read image: %v", err))
	}
	if err := w.Close(); err != nil {
		return "", apierrors.NewUploadFailed("storage", fmt.Sprintf("form build: %v", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, policy.Host, &buf)
	if err != nil {
		return "", apierrors.NewNetworkError(err)
	}
	req.Header.Set("content-type", w.FormDataContentType())
	req.Header.Set("referer", fmt.Sprintf(refererFmt, pageUpload))
	req.Header.Set("user-agent", ossUserAgent)

	resp, err := c.journalHTTP.Do(req)
	if err != nil {
		metrics.UploadSteps.WithLabelValues("storage", "fail").Inc()
		return "", apierrors.NewNetworkError(err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.UploadSteps.WithLabelValues("storage", "fail").Inc()
		return "", apierrors.NewNetworkError(err)
	}
	if resp.StatusCode != http.StatusOK {
		metrics.UploadSteps.WithLabelValues("storage", "fail").Inc()
		return "", apierrors.NewUploadFailed("storage",
			fmt.Sprintf("http %d: %s", resp.StatusCode, truncate(body, 512)))
	}

	var payload struct {
		Vo struct {
			Key string `json:"key"`
		} `json:"vo"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || payload.Vo.Key == "" {
		metrics.UploadSteps.WithLabelValues("storage", "fail").Inc()
		return "", apierrors.NewUploadFailed("storage", "callback payload missing object key")
	}
	metrics.UploadSteps.WithLabelValues("storage", "ok").Inc()
	c.log.Info("image stored", map[string]interface{}{"key": payload.Vo.Key})
	return payload.Vo.Key, nil
}

// PostNew finalizes a photo clock with the stored object key. Unlike the
// simple clock, the digest here covers the session identity rather than the
// body; the server verifies it that way, so it stays that way.
func (c *Client) PostNew(ctx context.Context, auth *Auth, traineeID string, geo *Geo, lng, lat, imgKey string) error {
	fields := NewFields().
		Set("traineeId", traineeID).
		Set("adcode", geo.Adcode).
		Set("lat", lat).
		Set("lng", lng).
		Set("address", geo.FormattedAddress).
		Set("deviceName", c.profile.Model).
		Set("punchInStatus", "0").
		Set("clockStatus", "2").
		Set("imgUrl", imgKey).
		Set("reason", "").
		Set("addressId", "null")

	req, err := c.newPost(ctx, pathPostNew, pageUpload, fields)
	if err != nil {
		return err
	}
	c.signHeaders(req, auth.signSource())
	c.authHeaders(req, auth)
	if err := c.deviceHeader(req, auth.OpenID); err != nil {
		return err
	}

	env, err := c.do(c.http, req, "postNew")
	if err != nil {
		metrics.UploadSteps.WithLabelValues("finalize", "fail").Inc()
		return err
	}
	out := c.outcome(env)
	switch out.Kind {
	case Success:
		metrics.UploadSteps.WithLabelValues("finalize", "ok").Inc()
		return nil
	case SessionInvalid:
		metrics.UploadSteps.WithLabelValues("finalize", "fail").Inc()
		return apierrors.NewSessionInvalid(out.Msg)
	default:
		metrics.UploadSteps.WithLabelValues("finalize", "fail").Inc()
		return apierrors.NewUploadFailed("finalize", out.Msg)
	}
}

// DeliverValue is the post-clock notification call the mini-program fires
// after a successful photo clock. Signed over the session identity, no
// device fingerprint.
func (c *Client) DeliverValue(ctx context.Context, auth *Auth, traineeID string) error {
	fields := NewFields().Set("traineeId", traineeID)

	req, err := c.newPost(ctx, pathDeliverValue, pageUpload, fields)
	if err != nil {
		return err
	}
	c.signHeaders(req, auth.signSource())
	c.authHeaders(req, auth)

	env, err := c.do(c.http, req, "deliverValue")
	if err != nil {
		return err
	}
	out := c.outcome(env)
	if out.Kind == SessionInvalid {
		return apierrors.NewSessionInvalid(out.Msg)
	}
	if out.Kind != Success {
		return apierrors.NewUploadFailed("deliver", out.Msg)
	}
	return nil
}
