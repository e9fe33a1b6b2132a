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
)

// GetTimeline reconstructs the custody history of a batch. The :ref segment
// accepts either a numeric batch id or a tracking code.
func (a Api) GetTimeline(c *gin.Context) {
	ref, passed := c.Params.Get("ref")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ref is required. pass a batch id or tracking code in the route /:ref"})
		return
	}

	timeline, err := a.service.GetTimeline(c.Request.Context(), ref)
	if err != nil {
		respondError(c, err)
		return
	}

	status := http.StatusOK
	if timeline.Incomplete {
		// A degraded read is still served, flagged for the caller.
		status = http.StatusPartialContent
	}
	c.JSON(status, timeline)
}
