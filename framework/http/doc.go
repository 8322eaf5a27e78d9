// Package http provides the request and response helpers controllers use.
//
// # Request
//
//	req := gohttp.NewRequest(r)
//
//	// Decode a JSON body and validate its `validate` tags
//	var payload struct {
//	    Name string `json:"name" validate:"required,min=2"`
//	}
//	if err := req.Bind(&payload); err != nil { ... }
//
//	page  := req.Query("page", "1")
//	id    := req.RouteParam("id")
//	token := req.BearerToken()
//
// # Response
//
//	res := gohttp.NewResponse(w)
//
//	res.Success(data)             // 200 {"data": ...}
//	res.Created(data)             // 201 {"data": ...}
//	res.NoContent()               // 204
//	res.Error(400, "bad input")   // {"message": "bad input"}
//	res.NotFound()                // 404 {"message": "Not found."}
//	res.ServiceUnavailable()      // 503 {"message": "Service Unavailable."}
//	res.ValidationError(err)      // 422 {"errors": {"field": ["rule"]}}
package http
