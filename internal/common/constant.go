package common

// AuthorizationHeaderName carries the bearer access token on inbound requests.
const AuthorizationHeaderName = "Authorization"

// RefreshTokenCookieName is the HttpOnly cookie holding the opaque refresh token.
const RefreshTokenCookieName = "refresh_token"

// tokenPrefixLen is how much of a token may appear in logs.
const tokenPrefixLen = 10
