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

func (a Api) AssignRole(c *gin.Context) {
	var req model2.AssignRole
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	if err := req.ValidateAssignRole(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	txRef, err := a.service.AssignRole(c.Request.Context(), req.Account, req.Role)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"account": req.Account, "role": req.Role, "tx_ref": txRef})
}

func (a Api) GetRole(c *gin.Context) {
	account, passed := c.Params.Get("account")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "account is required. pass account in the route /:account"})
		return
	}

	role, err := a.service.GetRole(c.Request.Context(), account)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"account": account, "role": role})
}
