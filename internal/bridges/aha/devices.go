package aha

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/nerrad567/aha-recorder/internal/device"
)

// homeAutoPath is the home automation command endpoint.
const homeAutoPath = "/webservices/homeautoswitch.lua"

// DeviceList fetches getdevicelistinfos for the session sid and returns the
// parsed list as a Snapshot.
//
// Returns:
//   - *device.Snapshot: Devices in gateway order
//   - error: Wrapped ErrFetchFailed on transport, status or parse failures
func (c *Client) DeviceList(ctx context.Context, sid string) (*device.Snapshot, error) {
	query := url.Values{}
	query.Set("sid", sid)
	query.Set("switchcmd", "getdevicelistinfos")

	body, err := c.get(ctx, homeAutoPath, query)
	if err != nil {
		return nil, err
	}

	devices, err := device.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: parsing device list: %w", ErrFetchFailed, err)
	}

	c.logger.Debug("fetched device list", "devices", len(devices))
	return device.NewSnapshot(time.Now(), devices), nil
}
