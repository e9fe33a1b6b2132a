/*
Copyright 2025 ChainProof Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/chainproof/chainproof"
	"github.com/chainproof/chainproof/api/middleware"
	"github.com/chainproof/chainproof/config"
	"github.com/chainproof/chainproof/internal/apierror"
)

type Api struct {
	service *chainproof.Chainproof
	router  *gin.Engine
}

func (a Api) Router() *gin.Engine {
	router := a.router
	router.POST("/roles", a.AssignRole)
	router.GET("/roles/:account", a.GetRole)

	router.POST("/batches", a.HarvestBatch)
	router.GET("/batches/:id", a.GetBatch)
	router.GET("/batches/:id/transfer", a.GetPendingTransfer)
	router.GET("/batches/:id/ancestors", a.GetAncestors)
	router.GET("/batches/:id/descendants", a.GetDescendants)
	router.POST("/batches/:id/split", a.SplitBatch)
	router.POST("/batches/:id/transfer", a.InitiateTransfer)
	router.POST("/batches/:id/receive", a.ReceiveBatch)

	router.POST("/merge", a.MergeBatches)
	router.POST("/transform", a.TransformBatches)

	router.GET("/timeline/:ref", a.GetTimeline)
	router.GET("/tracking-codes/:code", a.ResolveTrackingCode)
	router.GET("/summary", a.GetSummary)
	return a.router
}

func NewAPI(service *chainproof.Chainproof) *Api {
	gin.SetMode(gin.ReleaseMode)
	conf, err := config.Fetch()
	if err != nil {
		return nil
	}
	r := gin.Default()
	if conf.Server.Secure {
		r.Use(middleware.SecretKeyAuthMiddleware())
	}
	r.Use(middleware.RateLimitMiddleware(conf))

	r.GET("/", func(c *gin.Context) {
		c.JSON(200, "server running...")
	})

	return &Api{service: service, router: r}
}

// batchIDParam parses the :id route segment. Batch ids are positive integers
// minted by the ledger.
func batchIDParam(c *gin.Context) (uint64, bool) {
	raw, passed := c.Params.Get("id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required. pass id in the route /:id"})
		return 0, false
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id must be a positive integer"})
		return 0, false
	}
	return id, true
}

func respondError(c *gin.Context, err error) {
	c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
}
