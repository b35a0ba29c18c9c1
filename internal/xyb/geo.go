package xyb

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"xybclock/internal/common/apierrors"
	"xybclock/internal/common/metrics"
)

// amapKey is the map key the mini-program itself ships, reused verbatim.
const amapKey = "c222383ff12d31b556c3ad6145bb95f4"

// Geo is the resolved address for a coordinate pair.
type Geo struct {
	FormattedAddress string
	Adcode           string
}

type regeoPayload struct {
	Regeocode *struct {
		FormattedAddress flexString `json:"formatted_address"`
		AddressComponent struct {
			Adcode flexString `json:"adcode"`
		} `json:"addressComponent"`
	} `json:"regeocode"`
}

// Regeo reverse-geocodes the configured coordinates through the AMap API the
// mini-program uses, yielding the address and district code the clock
// endpoints require.
func (c *Client) Regeo(ctx context.Context, longitude, latitude string) (*Geo, error) {
	q := url.Values{}
	q.Set("s", "rsx")
	q.Set("platform", "WXJS")
	q.Set("logversion", "2.0")
	q.Set("extensions", "all")
	q.Set("sdkversion", "1.2.0")
	q.Set("key", amapKey)
	q.Set("appname", amapKey)
	q.Set("location", longitude+","+latitude)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.amapURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, apierrors.NewNetworkError(err)
	}
	req.Header.Set("xweb_xhr", "1")
	req.Header.Set("content-type", "application/json")
	req.Header.Set("referer", fmt.Sprintf(refererFmt, pageGeo))
	req.Header.Set("user-agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		metrics.RemoteRequests.WithLabelValues("regeo", "network_error").Inc()
		return nil, apierrors.NewNetworkError(err)
	}
	defer resp.Body.Close()

	var payload regeoPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		metrics.RemoteRequests.WithLabelValues("regeo", "unparseable").Inc()
		return nil, apierrors.NewRemoteError(fmt.Sprintf("reverse geocoding payload: %v", err))
	}
	if payload.Regeocode == nil {
		metrics.RemoteRequests.WithLabelValues("regeo", "rejected").Inc()
		return nil, apierrors.NewRemoteError("reverse geocoding failed: no regeocode in response")
	}
	metrics.RemoteRequests.WithLabelValues("regeo", "200").Inc()

	geo := &Geo{
		FormattedAddress: payload.Regeocode.FormattedAddress.String(),
		Adcode:           payload.Regeocode.AddressComponent.Adcode.String(),
	}
	c.log.Info("resolved location", map[string]interface{}{"address": geo.FormattedAddress})
	return geo, nil
}
