package echoapi

import (
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/attendance"
)

type (
	scanApi struct {
		svc attendance.Service
		gap time.Duration

		mutex      sync.Mutex
		assemblers map[string]*attendance.Assembler // keyed by surface
	}

	// KeyInput is one keystroke as reported by a capture surface.
	// RFID readers emulate keyboards: digits then an "Enter".
	KeyInput struct {
		Surface string    `json:"surface" validate:"required"`
		Key     string    `json:"key" validate:"required"`
		At      time.Time `json:"at"`
	}

	ScanResponse struct {
		Buffered bool                `json:"buffered"`
		Session  *attendance.Session `json:"session,omitempty"`
		Record   *attendance.Record  `json:"record,omitempty"`
	}
)

func registerScanAPI(g *echo.Group, svc attendance.Service, conf *core.Config) {
	api := &scanApi{
		svc:        svc,
		gap:        conf.Attendance.ScanGapThreshold,
		assemblers: make(map[string]*attendance.Assembler),
	}
	g.POST("/scans", api.key)
}

func (in *KeyInput) Validate() error {
	in.Surface = core.CleanString(in.Surface)
	return core.Validate.Struct(in)
}

// key ingests a single keystroke. Most calls only feed a surface's buffer;
// the one carrying the terminating "Enter" resolves into an attendance write.
func (api *scanApi) key(ctx echo.Context) error {
	var data KeyInput
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to KeyInput")
	}
	if err := data.Validate(); err != nil {
		return err
	}
	if data.At.IsZero() {
		data.At = time.Now().UTC()
	}

	token, ok := api.feed(data)
	if !ok {
		return ctx.JSON(http.StatusAccepted, ScanResponse{Buffered: true})
	}

	session, rec, err := api.svc.HandleScan(ctx.Request().Context(), token)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, ScanResponse{Session: &session, Record: &rec})
}

func (api *scanApi) feed(in KeyInput) (attendance.ScanToken, bool) {
	api.mutex.Lock()
	defer api.mutex.Unlock()

	asm, ok := api.assemblers[in.Surface]
	if !ok {
		asm = attendance.NewAssembler(in.Surface, api.gap)
		api.assemblers[in.Surface] = asm
	}
	return asm.Key(in.Key, in.At)
}
