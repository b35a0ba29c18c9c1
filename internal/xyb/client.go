// Package xyb is the client for the xybsyw mini-program API: request
// signing, device fingerprinting, the response-envelope normalization
// boundary, and one method per remote operation.
package xyb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"xybclock/internal/common/apierrors"
	"xybclock/internal/common/httpclient"
	"xybclock/internal/common/logger"
	"xybclock/internal/common/metrics"
	"xybclock/internal/devicecode"
	"xybclock/internal/signer"
)

const (
	DefaultBaseURL = "https://xcx.xybsyw.com"
	DefaultAmapURL = "https://restapi.amap.com/v3/geocode/regeo"

	appVersion = "1.6.39"
	refererFmt = "https://servicewechat.com/wx9f1c2e0bbc10673c/%s/page-frame.html"

	// Mini-program page revisions baked into the referer per endpoint group.
	pageAuth    = "534"
	pageClock   = "534"
	pageGeo     = "533"
	pageUpload  = "537"
	pageJournal = "539"
)

const (
	pathGetOpenID    = "/common/getOpenId.action"
	pathWxLogin      = "/login/login!wx.action"
	pathGetPlan      = "/student/clock/GetPlan.action"
	pathSimpleClock  = "/student/clock/Post.action"
	pathPostPolicy   = "/uploadfile/commonPostPolicy.action"
	pathPostNew      = "/student/clock/PostNew.action"
	pathDeliverValue = "/student/DeliverValue!post.action"
	pathJournalYear  = "/student/blog/LoadBlogDate!weekYear.action"
	pathJournalWeek  = "/student/blog/LoadBlogDate!week.action"
	pathJournalSave  = "/student/blog/Blog!save.action"
)

// excludedHeader is the verbatim n-header listing of field names the server
// skips when verifying the digest. It is a fixed protocol constant, repeats
// and all; do not normalize it.
const excludedHeader = "content,deviceName,keyWord,blogBody,blogTitle,getType," +
	"responsibilities,street,text,reason,searchvalue,key,answers,leaveReason," +
	"personRemark,selfAppraisal,imgUrl,wxname,deviceId,avatarTempPath,file,file," +
	"model,brand,system,deviceId,platform,code,openId,unionid,clockDeviceToken," +
	"clockDevice,address,name,enterpriseEmail,responsibilities,practiceTarget," +
	"guardianName,guardianPhone,practiceDays,linkman,enterpriseName," +
	"companyIntroduction,accommodationStreet,accommodationLongitude," +
	"accommodationLatitude,internshipDestination,specialStatement," +
	"enterpriseStreet,insuranceName,insuranceFinancing,policyNumber," +
	"overtimeRemark,riskStatement,specialStatement"

// Auth is the session identity attached to authenticated calls.
type Auth struct {
	OpenID       string
	UnionID      string
	EncryptValue string
	SessionID    string
	TraineeID    string
}

// signSource exposes the identity fields as a sign source. A couple of
// endpoints compute the digest over these instead of the request body;
// that is what the server verifies, so it is preserved as-is.
func (a *Auth) signSource() map[string]string {
	m := map[string]string{
		"openId":       a.OpenID,
		"unionId":      a.UnionID,
		"encryptValue": a.EncryptValue,
		"sessionId":    a.SessionID,
	}
	if a.TraineeID != "" {
		m["traineeId"] = a.TraineeID
	}
	return m
}

// Options configures a Client.
type Options struct {
	BaseURL        string
	AmapURL        string
	UserAgent      string
	Profile        devicecode.Profile
	Timeout        time.Duration
	JournalTimeout time.Duration
}

type Client struct {
	baseURL   string
	amapURL   string
	userAgent string
	profile   devicecode.Profile

	http        *httpclient.Client
	journalHTTP *httpclient.Client
	signer      *signer.Signer
	device      *devicecode.Encryptor
	log         logger.Logger

	onSessionInvalid func()
}

func NewClient(opts Options, log logger.Logger) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.AmapURL == "" {
		opts.AmapURL = DefaultAmapURL
	}
	if opts.Timeout == 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.JournalTimeout == 0 {
		opts.JournalTimeout = 10 * time.Second
	}
	return &Client{
		baseURL:     strings.TrimSuffix(opts.BaseURL, "/"),
		amapURL:     opts.AmapURL,
		userAgent:   opts.UserAgent,
		profile:     opts.Profile,
		http:        httpclient.NewClient(opts.Timeout),
		journalHTTP: httpclient.NewClient(opts.JournalTimeout),
		signer:      signer.New(),
		device:      devicecode.New(),
		log:         log,
	}
}

// OnSessionInvalid registers the hook invoked whenever any call observes the
// server's invalidation signal, before the error propagates. The session
// manager uses it to discard the cache.
func (c *Client) OnSessionInvalid(fn func()) {
	c.onSessionInvalid = fn
}

// ==========================
// Request building
// ==========================

func (c *Client) newPost(ctx context.Context, path, page string, fields *Fields) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(fields.Encode()))
	if err != nil {
		return nil, apierrors.NewNetworkError(err)
	}
	req.Header.Set("content-type", "application/x-www-form-urlencoded")
	req.Header.Set("v", appVersion)
	req.Header.Set("xweb_xhr", "1")
	req.Header.Set("referer", fmt.Sprintf(refererFmt, page))
	req.Header.Set("user-agent", c.userAgent)
	return req, nil
}

// signHeaders attaches the integrity token computed over source, plus the
// companion wechat/n headers every signed call carries.
func (c *Client) signHeaders(req *http.Request, source map[string]string) {
	tok := c.signer.Sign(source)
	req.Header.Set("wechat", "1")
	req.Header.Set("n", excludedHeader)
	req.Header.Set("m", tok.M)
	req.Header.Set("s", tok.S)
	req.Header.Set("t", tok.T)
}

func (c *Client) authHeaders(req *http.Request, auth *Auth) {
	req.Header.Set("encryptvalue", auth.EncryptValue)
	req.AddCookie(&http.Cookie{Name: "JSESSIONID", Value: auth.SessionID})
}

// deviceHeader attaches a freshly encrypted fingerprint for the owner id.
func (c *Client) deviceHeader(req *http.Request, ownerID string) error {
	dc, err := c.device.Encode(c.profile, ownerID)
	if err != nil {
		return apierrors.NewLocalInputInvalid(fmt.Sprintf("device fingerprint: %v", err))
	}
	req.Header.Set("devicecode", dc)
	return nil
}

// ==========================
// Response handling
// ==========================

func (c *Client) do(httpc *httpclient.Client, req *http.Request, endpoint string) (*Envelope, error) {
	resp, err := httpc.Do(req)
	if err != nil {
		metrics.RemoteRequests.WithLabelValues(endpoint, "network_error").Inc()
		return nil, apierrors.NewNetworkError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.RemoteRequests.WithLabelValues(endpoint, "network_error").Inc()
		return nil, apierrors.NewNetworkError(err)
	}

	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		metrics.RemoteRequests.WithLabelValues(endpoint, "unparseable").Inc()
		return nil, apierrors.NewRemoteError(
			fmt.Sprintf("unparseable response (http %d): %s", resp.StatusCode, truncate(body, 512)))
	}

	metrics.RemoteRequests.WithLabelValues(endpoint, env.Code.String()).Inc()
	return &env, nil
}

// outcome normalizes the envelope and fires the invalidation hook when the
// session-dead signal is present.
func (c *Client) outcome(env *Envelope) Outcome {
	out := Normalize(env)
	if out.Kind == SessionInvalid {
		c.log.Warn("server declared the session invalid", map[string]interface{}{"msg": out.Msg})
		if c.onSessionInvalid != nil {
			c.onSessionInvalid()
		}
	}
	return out
}

// errFrom maps a non-success outcome to its standard error.
func errFrom(out Outcome) error {
	switch out.Kind {
	case SessionInvalid:
		return apierrors.NewSessionInvalid(out.Msg)
	case CodeExpired:
		return apierrors.NewAuthCodeExpired(out.Msg)
	default:
		return apierrors.NewRemoteError(out.Msg)
	}
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
