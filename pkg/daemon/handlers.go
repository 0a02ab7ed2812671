package daemon

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/charlie0129/cwfg/pkg/config"
	"github.com/charlie0129/cwfg/pkg/cw2015"
	"github.com/charlie0129/cwfg/pkg/events"
	"github.com/charlie0129/cwfg/pkg/version"
)

var errNotAttached = errors.New("no fuel gauge attached")

func getQueries(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, cw2015.Queries)
}

func getQuery(c *gin.Context) {
	name := c.Param("name")
	q, ok := cw2015.LookupQuery(name)
	if !ok {
		err := fmt.Errorf("%w: %s", cw2015.ErrUnknownQuery, name)
		c.IndentedJSON(http.StatusNotFound, err.Error())
		_ = c.AbortWithError(http.StatusNotFound, err)
		return
	}

	dev, release := gauge.device()
	defer release()
	if dev == nil {
		abortUnavailable(c, errNotAttached)
		return
	}

	v, err := q.Read(dev)
	if err != nil {
		queryFailed(c, name, err)
		return
	}

	c.IndentedJSON(http.StatusOK, v)
}

func getReading(c *gin.Context) {
	dev, release := gauge.device()
	defer release()
	if dev == nil {
		abortUnavailable(c, errNotAttached)
		return
	}

	r, err := dev.Reading()
	if err != nil {
		queryFailed(c, "reading", err)
		return
	}

	c.IndentedJSON(http.StatusOK, r)
}

func queryFailed(c *gin.Context, name string, err error) {
	logrus.WithField("query", name).Errorf("query failed: %v", err)
	sseHub.Publish(events.QueryFailed, events.QueryFailedEvent{
		Query: name,
		Error: err.Error(),
		Ts:    time.Now().Unix(),
	})

	var be *cw2015.BusError
	if errors.As(err, &be) {
		abortUnavailable(c, err)
		return
	}
	c.IndentedJSON(http.StatusInternalServerError, err.Error())
	_ = c.AbortWithError(http.StatusInternalServerError, err)
}

func abortUnavailable(c *gin.Context, err error) {
	c.IndentedJSON(http.StatusServiceUnavailable, err.Error())
	_ = c.AbortWithError(http.StatusServiceUnavailable, err)
}

func getConfig(c *gin.Context) {
	fc, err := config.NewRawFileConfigFromConfig(conf)
	if err != nil {
		_ = c.AbortWithError(http.StatusInternalServerError, err)
		return
	}
	c.IndentedJSON(http.StatusOK, fc)
}

func getEvents(c *gin.Context) {
	if sseHub == nil {
		_ = c.AbortWithError(http.StatusServiceUnavailable, errors.New("event hub not running"))
		return
	}

	ch := sseHub.Subscribe()
	defer sseHub.Unsubscribe(ch)

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		select {
		case ev, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent(ev.Name, string(ev.Data))
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

func getVersion(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, version.Version)
}
