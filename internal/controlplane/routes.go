package controlplane

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// registerRoutes wires every control-plane endpoint onto r.
func registerRoutes(r *gin.Engine, h *Handler, reg *prometheus.Registry) {
	r.GET("/healthz", h.Healthz)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	r.POST("/update", h.DDNSUpdate)

	zones := r.Group("/zones")
	zones.GET("", h.ListZones)
	zones.POST("", h.CreateZone)
	zones.GET("/:name", h.GetZone)
	zones.DELETE("/:name", h.DeleteZone)

	zones.GET("/:name/records", h.ListRecords)
	zones.POST("/:name/records", h.CreateRecord)

	r.DELETE("/records/:id", h.DeleteRecord)

	r.POST("/ddns-credentials", h.CreateDDNSCredential)
}
