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

func (a Api) InitiateTransfer(c *gin.Context) {
	id, ok := batchIDParam(c)
	if !ok {
		return
	}

	var req model2.InitiateTransfer
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	if err := req.ValidateInitiateTransfer(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	txRef, err := a.service.InitiateTransfer(c.Request.Context(), req.Actor, id, req.To)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"batch_id": id, "from": req.Actor, "to": req.To, "tx_ref": txRef})
}

func (a Api) ReceiveBatch(c *gin.Context) {
	id, ok := batchIDParam(c)
	if !ok {
		return
	}

	var req model2.ReceiveBatch
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	if err := req.ValidateReceiveBatch(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	txRef, err := a.service.Receive(c.Request.Context(), req.Actor, id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"batch_id": id, "received_by": req.Actor, "tx_ref": txRef})
}

func (a Api) GetPendingTransfer(c *gin.Context) {
	id, ok := batchIDParam(c)
	if !ok {
		return
	}

	transfer, err := a.service.GetPendingTransfer(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if transfer == nil {
		c.JSON(http.StatusOK, gin.H{"batch_id": id, "pending": false})
		return
	}

	c.JSON(http.StatusOK, gin.H{"batch_id": id, "pending": true, "transfer": transfer})
}
