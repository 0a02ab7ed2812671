package client

import (
	"encoding/json"
	"strconv"
	"strings"

	pkgerrors "github.com/pkg/errors"

	"github.com/charlie0129/cwfg/pkg/config"
	"github.com/charlie0129/cwfg/pkg/cw2015"
)

// GetQuery returns the raw integer value of the named query.
func (c *Client) GetQuery(name string) (int, error) {
	ret, err := c.Get("/query/" + name)
	if err != nil {
		return 0, pkgerrors.Wrapf(err, "failed to get %s", name)
	}
	v, err := strconv.Atoi(strings.TrimSpace(ret))
	if err != nil {
		return 0, pkgerrors.Wrapf(err, "failed to parse %s", name)
	}
	return v, nil
}

func (c *Client) GetMillivolts() (int, error) {
	return c.GetQuery("millivolt")
}

func (c *Client) GetChargePercent() (int, error) {
	return c.GetQuery("chargepct")
}

func (c *Client) GetRemainingMinutes() (int, error) {
	return c.GetQuery("remaining")
}

func (c *Client) GetCharging() (bool, error) {
	v, err := c.GetQuery("charging")
	if err != nil {
		return false, err
	}
	return v != 0, nil
}

func (c *Client) GetReading() (*cw2015.Reading, error) {
	ret, err := c.Get("/reading")
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to get reading")
	}

	var r cw2015.Reading
	if err := json.Unmarshal([]byte(ret), &r); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to unmarshal reading")
	}
	return &r, nil
}

// QueryInfo describes a query served by the daemon.
type QueryInfo struct {
	Name        string `json:"name"`
	Unit        string `json:"unit"`
	Description string `json:"description"`
}

func (c *Client) GetQueries() ([]QueryInfo, error) {
	ret, err := c.Get("/queries")
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to list queries")
	}

	var qs []QueryInfo
	if err := json.Unmarshal([]byte(ret), &qs); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to unmarshal queries")
	}
	return qs, nil
}

func (c *Client) GetConfig() (*config.RawFileConfig, error) {
	ret, err := c.Get("/config")
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to get config")
	}

	var conf config.RawFileConfig
	if err := json.Unmarshal([]byte(ret), &conf); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to unmarshal config")
	}

	return &conf, nil
}

func (c *Client) GetVersion() (string, error) {
	ret, err := c.Get("/version")
	if err != nil {
		return "", pkgerrors.Wrapf(err, "failed to get version")
	}

	var v string
	if err := json.Unmarshal([]byte(ret), &v); err != nil {
		return "", pkgerrors.Wrapf(err, "failed to unmarshal version")
	}
	return v, nil
}
