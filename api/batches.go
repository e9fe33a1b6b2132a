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

	"github.com/gin-gonic/gin"

	model2 "github.com/chainproof/chainproof/api/model"
)

func (a Api) HarvestBatch(c *gin.Context) {
	var req model2.HarvestBatch
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	if err := req.ValidateHarvestBatch(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	batch, err := a.service.Harvest(c.Request.Context(), req.Actor, req.ToSpec())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, batch)
}

func (a Api) GetBatch(c *gin.Context) {
	id, ok := batchIDParam(c)
	if !ok {
		return
	}

	batch, err := a.service.GetBatch(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, batch)
}

func (a Api) SplitBatch(c *gin.Context) {
	id, ok := batchIDParam(c)
	if !ok {
		return
	}

	var req model2.SplitBatch
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	if err := req.ValidateSplitBatch(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	children, err := a.service.Split(c.Request.Context(), req.Actor, id, req.ToSpecs())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"parent_id": id, "children": children})
}

func (a Api) MergeBatches(c *gin.Context) {
	var req model2.MergeBatches
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	if err := req.ValidateMergeBatches(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	batch, err := a.service.Merge(c.Request.Context(), req.Actor, req.InputIDs, req.ToSpec())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, batch)
}

func (a Api) TransformBatches(c *gin.Context) {
	var req model2.TransformBatches
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	if err := req.ValidateTransformBatches(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	batch, err := a.service.Transform(c.Request.Context(), req.Actor, req.InputIDs, req.ProcessType, req.ToSpec())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, batch)
}

func (a Api) GetAncestors(c *gin.Context) {
	id, ok := batchIDParam(c)
	if !ok {
		return
	}

	ancestors, err := a.service.GetAncestors(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"batch_id": id, "ancestors": ancestors})
}

func (a Api) GetDescendants(c *gin.Context) {
	id, ok := batchIDParam(c)
	if !ok {
		return
	}

	descendants, err := a.service.GetDescendants(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"batch_id": id, "descendants": descendants})
}

func (a Api) ResolveTrackingCode(c *gin.Context) {
	code, passed := c.Params.Get("code")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "code is required. pass code in the route /:code"})
		return
	}

	id, err := a.service.GetBatchIDByTrackingCode(c.Request.Context(), code)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"tracking_code": code, "batch_id": id})
}

func (a Api) GetSummary(c *gin.Context) {
	summary, err := a.service.GetSummary(c.Request.Context(), c.Query("viewer"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}
