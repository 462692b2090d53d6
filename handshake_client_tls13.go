// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tls

import (
	"bytes"
	"crypto"
	"crypto/hmac"
	"crypto/rsa"
	"crypto/x509"
	"encoding/hex"
	stderrors "errors"
	"fmt"
	"hash"
	"io"

	"github.com/jesiegel1/mbedtls/errors"
	"github.com/jesiegel1/mbedtls/internal/tls13"
)

// StepResult is what one call to Conn.Step reports back to the driving loop.
type StepResult int

const (
	// StepContinue means the machine advanced and more work is pending.
	StepContinue StepResult = iota
	// StepWantRead means the transport needs more inbound bytes. The same
	// Step can be retried once they are available.
	StepWantRead
	// StepWantWrite means the transport needs outbound buffer space. The
	// same Step can be retried once it is available.
	StepWantWrite
	// StepNewSessionTicket means a NewSessionTicket arrived and a Session
	// is available from NewSessionTicketSession.
	StepNewSessionTicket
	// StepDone means the handshake is complete and no post-handshake
	// message is pending.
	StepDone
)

func (r StepResult) String() string {
	switch r {
	case StepContinue:
		return "continue"
	case StepWantRead:
		return "want read"
	case StepWantWrite:
		return "want write"
	case StepNewSessionTicket:
		return "new session ticket"
	case StepDone:
		return "done"
	default:
		return "unknown"
	}
}

// handshakeState enumerates the client handshake states. States advance
// strictly forward; a HelloRetryRequest rewinds to stateClientHello exactly
// once.
type handshakeState int

const (
	stateStart handshakeState = iota
	stateClientHello
	stateEarlyAppData
	stateServerHello
	stateEncryptedExtensions
	stateCertificateRequest
	stateServerCertificate
	stateServerCertificateVerify
	stateServerFinished
	stateEndOfEarlyData
	stateClientCertificate
	stateClientCertificateVerify
	stateClientFinished
	stateHandshakeWrapup
	stateHandshakeOver
)

func (s handshakeState) String() string {
	switch s {
	case stateStart:
		return "start"
	case stateClientHello:
		return "client hello"
	case stateEarlyAppData:
		return "early application data"
	case stateServerHello:
		return "server hello"
	case stateEncryptedExtensions:
		return "encrypted extensions"
	case stateCertificateRequest:
		return "certificate request"
	case stateServerCertificate:
		return "server certificate"
	case stateServerCertificateVerify:
		return "server certificate verify"
	case stateServerFinished:
		return "server finished"
	case stateEndOfEarlyData:
		return "end of early data"
	case stateClientCertificate:
		return "client certificate"
	case stateClientCertificateVerify:
		return "client certificate verify"
	case stateClientFinished:
		return "client finished"
	case stateHandshakeWrapup:
		return "handshake wrapup"
	case stateHandshakeOver:
		return "handshake over"
	default:
		return "unknown"
	}
}

// ErrDowngrade is returned when the server legitimately negotiates a
// protocol version below TLS 1.3, which this client does not implement.
// No alert is sent for this condition.
var ErrDowngrade = stderrors.New("tls: server negotiated a protocol version below TLS 1.3")

// alertError carries the alert to queue when a handshake error is fatal.
type alertError struct {
	alert alert
	err   error
}

func (e *alertError) Error() string { return e.err.Error() }
func (e *alertError) Unwrap() error { return e.err }

func fatal(a alert, err error) error {
	return &alertError{alert: a, err: err}
}

// Conn drives one client handshake over a Transport. It is not safe for
// concurrent use; the caller pumps it from a single goroutine by invoking
// Step until StepDone.
type Conn struct {
	config    *Config
	transport Transport

	state handshakeState
	err   error // sticky fatal error

	hello       *clientHelloMsg
	serverName  string // normalized server_name, also used for verification
	keyShareKey *keyExchange
	suite       *cipherSuiteTLS13
	transcript  *transcript
	hrrCount    int

	session         *Session
	pskSuite        *cipherSuiteTLS13
	usingPSK        bool
	earlyDataStatus EarlyDataStatus

	earlySecret     *tls13.EarlySecret
	handshakeSecret *tls13.HandshakeSecret
	masterSecret    *tls13.MasterSecret
	exporterSecret  *tls13.ExporterMasterSecret

	clientHsTrafficSecret  []byte
	serverHsTrafficSecret  []byte
	clientAppTrafficSecret []byte
	serverAppTrafficSecret []byte
	earlyTrafficSecret     []byte
	resumptionSecret       []byte

	maxFragmentLength uint8

	certReq          *certificateRequestMsgTLS13
	clientCert       *Certificate
	clientCertScheme SignatureScheme
	peerCertificates []*x509.Certificate
	verifiedChains   [][]*x509.Certificate
	ocspResponse     []byte
	scts             [][]byte
	alpnProtocol     string

	ccsSent               bool
	eoedQueued            bool
	helloWritten          bool
	keyUpdateReplyPending bool

	latestTicket *Session
}

// Client creates a handshake engine for the given transport and
// configuration. The handshake does not begin until the first Step.
func Client(transport Transport, config *Config) (*Conn, error) {
	if transport == nil {
		return nil, errors.New("nil transport").AtError()
	}
	if config == nil {
		config = &Config{}
	}
	for _, v := range config.supportedVersions() {
		if v != VersionTLS13 {
			return nil, errors.New("unsupported protocol version ", v).AtError()
		}
	}
	if config.MaxFragmentLength > MaxFragment4096 {
		return nil, errors.New("invalid max_fragment_length code ", config.MaxFragmentLength).AtError()
	}
	return &Conn{
		config:     config,
		transport:  transport,
		transcript: newTranscript(),
	}, nil
}

// Step advances the handshake by at most one state transition. It returns
// StepWantRead or StepWantWrite without advancing when the transport is
// blocked; retrying the same Step resumes exactly where it left off. After
// the handshake completes, Step polls for post-handshake messages.
func (c *Conn) Step() (StepResult, error) {
	if c.err != nil {
		return 0, c.err
	}

	res, err := c.step()
	if err == nil {
		return res, nil
	}
	if stderrors.Is(err, ErrWantRead) {
		return StepWantRead, nil
	}
	if stderrors.Is(err, ErrWantWrite) {
		return StepWantWrite, nil
	}

	// Fatal: queue the mapped alert, scrub secrets, and latch the error.
	var ae *alertError
	if stderrors.As(err, &ae) {
		if ae.alert != 0 {
			if alertErr := c.transport.SendAlert(uint8(ae.alert)); alertErr != nil {
				errors.LogWarningInner(alertErr, "failed to queue fatal alert")
			}
		}
		err = ae.err
	} else if !stderrors.Is(err, ErrDowngrade) {
		if alertErr := c.transport.SendAlert(uint8(alertInternalError)); alertErr != nil {
			errors.LogWarningInner(alertErr, "failed to queue fatal alert")
		}
	}
	c.zeroizeSecrets()
	c.err = err
	errors.LogErrorInner(err, "handshake failed in state ", c.state)
	return 0, err
}

func (c *Conn) step() (StepResult, error) {
	switch c.state {
	case stateStart:
		return c.prepareClientHello()
	case stateClientHello:
		return c.writeClientHello()
	case stateEarlyAppData:
		return c.startEarlyData()
	case stateServerHello:
		return c.readServerHello()
	case stateEncryptedExtensions:
		return c.readEncryptedExtensions()
	case stateCertificateRequest:
		return c.readCertificateRequestOrCertificate()
	case stateServerCertificate:
		return c.readServerCertificate()
	case stateServerCertificateVerify:
		return c.readServerCertificateVerify()
	case stateServerFinished:
		return c.readServerFinished()
	case stateEndOfEarlyData:
		return c.sendEndOfEarlyData()
	case stateClientCertificate:
		return c.sendClientCertificate()
	case stateClientCertificateVerify:
		return c.sendClientCertificateVerify()
	case stateClientFinished:
		return c.sendClientFinished()
	case stateHandshakeWrapup:
		return c.wrapup()
	case stateHandshakeOver:
		return c.readPostHandshake()
	default:
		return 0, fatal(alertInternalError, errors.New("invalid handshake state ", int(c.state)).AtError())
	}
}

// HandshakeComplete reports whether the handshake reached its final state.
func (c *Conn) HandshakeComplete() bool {
	return c.state == stateHandshakeOver && c.err == nil
}

// ConnectionState exposes the negotiated parameters once available.
type ConnectionState struct {
	CipherSuite        uint16
	NegotiatedProtocol string
	PeerCertificates   []*x509.Certificate
	VerifiedChains     [][]*x509.Certificate
	OCSPResponse       []byte
	DidResume          bool
	EarlyDataStatus    EarlyDataStatus

	// MaxFragmentLength is the RFC 6066 code the server accepted, or zero.
	MaxFragmentLength uint8
}

func (c *Conn) ConnectionState() ConnectionState {
	var suite uint16
	if c.suite != nil {
		suite = c.suite.id
	}
	return ConnectionState{
		CipherSuite:        suite,
		NegotiatedProtocol: c.alpnProtocol,
		PeerCertificates:   c.peerCertificates,
		VerifiedChains:     c.verifiedChains,
		OCSPResponse:       c.ocspResponse,
		DidResume:          c.usingPSK,
		EarlyDataStatus:    c.earlyDataStatus,
		MaxFragmentLength:  c.maxFragmentLength,
	}
}

// NewSessionTicketSession returns the Session built from the most recent
// NewSessionTicket, or nil. Each ticket is surfaced once.
func (c *Conn) NewSessionTicketSession() *Session {
	s := c.latestTicket
	c.latestTicket = nil
	return s
}

// ExportKeyingMaterial implements the RFC 8446, Section 7.5 exporter over
// the exporter_master_secret. It is only available after the server
// Finished has been processed.
func (c *Conn) ExportKeyingMaterial(label string, context []byte, length int) ([]byte, error) {
	if c.exporterSecret == nil {
		return nil, errors.New("exporter not available before handshake keys are established").AtError()
	}
	return c.exporterSecret.Exporter(label, context, length)
}

func (c *Conn) prepareClientHello() (StepResult, error) {
	hello, keyShareKey, err := c.makeClientHello()
	if err != nil {
		return 0, err
	}
	c.hello = hello
	c.keyShareKey = keyShareKey

	if err := c.maybeOfferSession(); err != nil {
		return 0, err
	}

	c.state = stateClientHello
	return StepContinue, nil
}

func (c *Conn) makeClientHello() (*clientHelloMsg, *keyExchange, error) {
	config := c.config

	random := make([]byte, 32)
	if _, err := io.ReadFull(config.rand(), random); err != nil {
		return nil, nil, fatal(alertInternalError, errors.New("failed to generate random").Base(err).AtError())
	}

	var sessionId []byte
	if !config.DisableCompatibilityMode {
		sessionId = make([]byte, 32)
		if _, err := io.ReadFull(config.rand(), sessionId); err != nil {
			return nil, nil, fatal(alertInternalError, errors.New("failed to generate session id").Base(err).AtError())
		}
	}

	if config.ServerName != "" {
		name, err := normalizeServerName(config.ServerName)
		if err != nil {
			return nil, nil, fatal(alertInternalError, err)
		}
		c.serverName = name
	}

	preferences := config.curvePreferences()
	key, err := generateKeyExchange(config.rand(), preferences[0])
	if err != nil {
		return nil, nil, fatal(alertInternalError, err)
	}

	hello := &clientHelloMsg{
		vers:                         VersionTLS12, // legacy_version is frozen at 0x0303
		random:                       random,
		sessionId:                    sessionId,
		cipherSuites:                 config.cipherSuites(),
		compressionMethods:           []uint8{0},
		serverName:                   c.serverName,
		maxFragmentLength:            config.MaxFragmentLength,
		supportedCurves:              preferences,
		supportedSignatureAlgorithms: supportedSignatureAlgorithms,
		alpnProtocols:                config.ALPNProtocols,
		supportedVersions:            []uint16{VersionTLS13},
		keyShares:                    []keyShare{{group: key.group, data: key.publicBytes()}},
		compressedCertAlgs:           config.certCompressionAlgs(),
	}
	return hello, key, nil
}

// maybeOfferSession attaches the pre_shared_key and early_data offers to the
// pending ClientHello if the configured Session is still usable.
func (c *Conn) maybeOfferSession() error {
	session := c.config.Session
	if session == nil {
		return nil
	}
	if !session.usableAt(c.config.now()) {
		errors.LogInfo("configured session is no longer usable, not offering resumption")
		return nil
	}
	pskSuite := cipherSuiteTLS13ByID(session.CipherSuite)
	if pskSuite == nil {
		return nil
	}
	offered := false
	for _, id := range c.hello.cipherSuites {
		if id == session.CipherSuite {
			offered = true
		}
	}
	if !offered {
		errors.LogInfo("session cipher suite not offered, not offering resumption")
		return nil
	}

	c.session = session
	c.pskSuite = pskSuite

	switch c.config.PSKMode {
	case PSKModePlain:
		c.hello.pskModes = []uint8{pskModePlain}
	case PSKModeBoth:
		c.hello.pskModes = []uint8{pskModePlain, pskModeDHE}
	default:
		c.hello.pskModes = []uint8{pskModeDHE}
	}
	c.hello.pskIdentities = []pskIdentity{{
		label:               session.label,
		obfuscatedTicketAge: session.obfuscatedTicketAge(c.config.now()),
	}}
	c.hello.pskBinders = [][]byte{make([]byte, pskSuite.hash().Size())}

	if c.config.EarlyData && session.MaxEarlyData > 0 && c.alpnMatchesSession() {
		c.hello.earlyData = true
		c.earlyDataStatus = EarlyDataOffered
	}

	earlySecret, err := tls13.NewEarlySecret(pskSuite.hash, session.secret)
	if err != nil {
		return fatal(alertInternalError, err)
	}
	c.earlySecret = earlySecret

	return c.computeBinders()
}

func (c *Conn) alpnMatchesSession() bool {
	if c.session.ALPN == "" {
		return len(c.config.ALPNProtocols) == 0
	}
	for _, proto := range c.config.ALPNProtocols {
		if proto == c.session.ALPN {
			return true
		}
	}
	return false
}

// computeBinders fills in the PSK binder over the transcript so far plus the
// partial ClientHello. The binder is always computed with the PSK's own
// hash, which may differ from the suite eventually negotiated.
func (c *Conn) computeBinders() error {
	binderKey, err := c.earlySecret.ResumptionBinderKey()
	if err != nil {
		return fatal(alertInternalError, err)
	}
	defer zeroSlice(binderKey)

	helloBytes, err := c.hello.marshalWithoutBinders()
	if err != nil {
		return fatal(alertInternalError, err)
	}

	var binderTranscript hash.Hash
	if c.hrrCount > 0 {
		// The retry transcript already holds message_hash and the
		// HelloRetryRequest; the PSK survived retry only because its
		// hash matches the negotiated one.
		binderTranscript, err = c.transcript.Clone()
		if err != nil {
			return fatal(alertInternalError, err)
		}
	} else {
		binderTranscript = c.pskSuite.hash()
		c.transcript.replayInto(binderTranscript)
	}
	binderTranscript.Write(helloBytes)

	binder, err := c.pskSuite.finishedHash(binderKey, binderTranscript)
	if err != nil {
		return fatal(alertInternalError, err)
	}
	if err := c.hello.updateBinders([][]byte{binder}); err != nil {
		return fatal(alertInternalError, errors.New("binder length mismatch").Base(err).AtError())
	}
	return nil
}

func (c *Conn) writeClientHello() (StepResult, error) {
	if c.hrrCount > 0 {
		if err := c.writeDummyChangeCipherSpec(); err != nil {
			return 0, err
		}
	}

	if !c.helloWritten {
		helloBytes, err := c.hello.marshal()
		if err != nil {
			return 0, fatal(alertInternalError, err)
		}
		if err := c.transport.WriteHandshakeMessage(helloBytes); err != nil {
			return 0, err
		}
		c.helloWritten = true
		c.transcript.Update(helloBytes)
	}

	if c.earlyDataStatus == EarlyDataOffered && c.hrrCount == 0 {
		c.state = stateEarlyAppData
	} else {
		c.state = stateServerHello
	}
	return StepContinue, nil
}

// writeDummyChangeCipherSpec sends the middlebox compatibility
// change_cipher_spec, at most once per connection.
func (c *Conn) writeDummyChangeCipherSpec() error {
	if c.config.DisableCompatibilityMode || c.ccsSent {
		return nil
	}
	if err := c.transport.WriteChangeCipherSpec(); err != nil {
		return err
	}
	c.ccsSent = true
	return nil
}

// startEarlyData derives and installs the 0-RTT write keys. The transcript
// covering the binder-complete ClientHello feeds the derivation under the
// PSK's hash.
func (c *Conn) startEarlyData() (StepResult, error) {
	if err := c.writeDummyChangeCipherSpec(); err != nil {
		return 0, err
	}

	chTranscript := c.pskSuite.hash()
	c.transcript.replayInto(chTranscript)
	earlyTrafficSecret, err := c.earlySecret.ClientEarlyTrafficSecret(chTranscript)
	if err != nil {
		return 0, fatal(alertInternalError, err)
	}
	c.earlyTrafficSecret = earlyTrafficSecret
	c.keyLog("CLIENT_EARLY_TRAFFIC_SECRET", earlyTrafficSecret)

	if err := c.installKeys(DirectionWrite, EpochEarlyData, c.pskSuite, earlyTrafficSecret); err != nil {
		return 0, err
	}

	c.state = stateServerHello
	return StepContinue, nil
}

func (c *Conn) readServerHello() (StepResult, error) {
	raw, err := c.transport.ReadHandshakeMessage()
	if err != nil {
		return 0, err
	}
	if len(raw) == 0 || raw[0] != typeServerHello {
		return 0, fatal(alertUnexpectedMessage, errors.New("expected a ServerHello").AtError())
	}
	serverHello := new(serverHelloMsg)
	if !serverHello.unmarshal(raw) {
		return 0, fatal(alertDecodeError, errors.New("malformed ServerHello").AtError())
	}

	if err := c.checkServerHelloOrHRR(serverHello); err != nil {
		return 0, err
	}

	if bytes.Equal(serverHello.random, helloRetryRequestRandom) {
		return c.processHelloRetryRequest(serverHello, raw)
	}
	return c.processServerHello(serverHello, raw)
}

// checkServerHelloOrHRR performs the validity checks common to ServerHello
// and HelloRetryRequest.
func (c *Conn) checkServerHelloOrHRR(sh *serverHelloMsg) error {
	if sh.vers != VersionTLS12 {
		return fatal(alertIllegalParameter, errors.New("server sent an incorrect legacy version").AtError())
	}
	if sh.supportedVersion == 0 {
		// The server negotiated TLS 1.2 or below. A downgrade sentinel in
		// the random means a TLS 1.3 server was forced down; a clean
		// negotiation is simply unsupported by this client.
		if len(sh.random) == 32 &&
			(bytes.Equal(sh.random[24:], []byte(downgradeCanaryTLS12)) ||
				bytes.Equal(sh.random[24:], []byte(downgradeCanaryTLS11))) {
			return fatal(alertIllegalParameter, errors.New("downgrade attempt detected").AtError())
		}
		return ErrDowngrade
	}
	if sh.supportedVersion != VersionTLS13 {
		return fatal(alertIllegalParameter, errors.New("server selected an invalid version after a HelloRetryRequest").AtError())
	}
	if sh.compressionMethod != 0 {
		return fatal(alertIllegalParameter, errors.New("server selected unsupported compression format").AtError())
	}
	if !bytes.Equal(sh.sessionId, c.hello.sessionId) {
		return fatal(alertIllegalParameter, errors.New("server did not echo the legacy session ID").AtError())
	}

	selectedSuite := mutualCipherSuiteTLS13(c.hello.cipherSuites, sh.cipherSuite)
	if selectedSuite == nil {
		return fatal(alertIllegalParameter, errors.New("server chose an unconfigured cipher suite").AtError())
	}
	if c.suite != nil && selectedSuite != c.suite {
		return fatal(alertIllegalParameter, errors.New("server changed cipher suite after a HelloRetryRequest").AtError())
	}
	c.suite = selectedSuite
	return nil
}

func (c *Conn) processHelloRetryRequest(hrr *serverHelloMsg, raw []byte) (StepResult, error) {
	c.hrrCount++
	if c.hrrCount > 1 {
		return 0, fatal(alertUnexpectedMessage, errors.New("server sent two HelloRetryRequest messages").AtError())
	}
	if len(hrr.cookie) > 0 && hrr.selectedGroup == 0 {
		// Cookie-only retries are a stateless-server mechanism; a retry
		// that changes nothing else is still acceptable.
		errors.LogDebug("HelloRetryRequest carries only a cookie")
	}

	// ClientHello1 is replaced in the transcript by its hash before the
	// HelloRetryRequest itself is appended.
	if err := c.transcript.ResetForHelloRetry(c.suite); err != nil {
		return 0, fatal(alertInternalError, err)
	}
	c.transcript.Update(raw)

	if hrr.serverShare.group != 0 {
		return 0, fatal(alertDecodeError, errors.New("received malformed key_share extension").AtError())
	}

	if hrr.selectedGroup != 0 {
		curveOK := false
		for _, group := range c.hello.supportedCurves {
			if group == hrr.selectedGroup {
				curveOK = true
				break
			}
		}
		if !curveOK {
			return 0, fatal(alertIllegalParameter, errors.New("server selected unsupported group").AtError())
		}
		if c.keyShareKey.group == hrr.selectedGroup {
			return 0, fatal(alertIllegalParameter, errors.New("server sent an unnecessary HelloRetryRequest key_share").AtError())
		}
		c.keyShareKey.Zeroize()
		key, err := generateKeyExchange(c.config.rand(), hrr.selectedGroup)
		if err != nil {
			return 0, fatal(alertInternalError, err)
		}
		c.keyShareKey = key
		c.hello.keyShares = []keyShare{{group: key.group, data: key.publicBytes()}}
	}

	if len(hrr.cookie) > 0 {
		c.hello.cookie = hrr.cookie
	}

	// Early data does not survive a retry.
	if c.earlyDataStatus == EarlyDataOffered {
		c.earlyDataStatus = EarlyDataRejected
	}
	c.hello.earlyData = false

	// The PSK offer survives only if its hash matches the committed suite.
	if c.session != nil {
		if transcriptHashKey(c.pskSuite) != transcriptHashKey(c.suite) {
			c.hello.pskModes = nil
			c.hello.pskIdentities = nil
			c.hello.pskBinders = nil
			c.session = nil
			c.pskSuite = nil
			c.earlySecret.Zeroize()
			c.earlySecret = nil
		} else {
			c.hello.pskIdentities[0].obfuscatedTicketAge = c.session.obfuscatedTicketAge(c.config.now())
		}
	}

	c.hello.raw = nil
	if c.session != nil {
		if err := c.computeBinders(); err != nil {
			return 0, err
		}
	}

	c.helloWritten = false
	c.state = stateClientHello
	return StepContinue, nil
}

func (c *Conn) processServerHello(sh *serverHelloMsg, raw []byte) (StepResult, error) {
	if len(sh.cookie) > 0 {
		return 0, fatal(alertUnsupportedExtension, errors.New("server sent a cookie in a normal ServerHello").AtError())
	}
	if sh.selectedGroup != 0 {
		return 0, fatal(alertDecodeError, errors.New("malformed key_share extension").AtError())
	}

	// Resolve the key exchange mode from what the ServerHello carries.
	ephemeral := sh.serverShare.group != 0
	pskAccepted := sh.selectedIdentityPresent

	if pskAccepted {
		if c.session == nil {
			return 0, fatal(alertIllegalParameter, errors.New("server selected a PSK that was not offered").AtError())
		}
		if sh.selectedIdentity != 0 {
			return 0, fatal(alertIllegalParameter, errors.New("server selected an invalid PSK identity").AtError())
		}
		if transcriptHashKey(c.pskSuite) != transcriptHashKey(c.suite) {
			return 0, fatal(alertIllegalParameter, errors.New("server selected a PSK with an incompatible cipher suite").AtError())
		}
		modePlain := false
		modeDHE := false
		for _, mode := range c.hello.pskModes {
			switch mode {
			case pskModePlain:
				modePlain = true
			case pskModeDHE:
				modeDHE = true
			}
		}
		if ephemeral && !modeDHE {
			return 0, fatal(alertIllegalParameter, errors.New("server chose psk_dhe_ke, which was not offered").AtError())
		}
		if !ephemeral && !modePlain {
			return 0, fatal(alertIllegalParameter, errors.New("server chose psk_ke, which was not offered").AtError())
		}
		c.usingPSK = true
	}
	if !ephemeral && !pskAccepted {
		return 0, fatal(alertHandshakeFailure, errors.New("server provided neither a key share nor a PSK").AtError())
	}

	var sharedSecret []byte
	if ephemeral {
		if sh.serverShare.group != c.keyShareKey.group {
			return 0, fatal(alertIllegalParameter, errors.New("server selected unsupported group").AtError())
		}
		var err error
		sharedSecret, err = c.keyShareKey.sharedSecret(sh.serverShare.data)
		if err != nil {
			return 0, fatal(alertIllegalParameter, errors.New("invalid server key share").Base(err).AtError())
		}
	}

	if c.transcript.selected == nil {
		if err := c.transcript.Select(c.suite); err != nil {
			return 0, fatal(alertInternalError, err)
		}
	}
	c.transcript.Update(raw)

	earlySecret := c.earlySecret
	if !c.usingPSK {
		var err error
		earlySecret, err = tls13.NewEarlySecret(c.suite.hash, nil)
		if err != nil {
			return 0, fatal(alertInternalError, err)
		}
		if c.earlySecret != nil {
			c.earlySecret.Zeroize()
			c.earlySecret = nil
		}
	}

	handshakeSecret, err := earlySecret.HandshakeSecret(sharedSecret)
	zeroSlice(sharedSecret)
	c.keyShareKey.Zeroize()
	earlySecret.Zeroize()
	c.earlySecret = nil
	if err != nil {
		return 0, fatal(alertInternalError, err)
	}
	c.handshakeSecret = handshakeSecret

	shTranscript, err := c.transcript.Clone()
	if err != nil {
		return 0, fatal(alertInternalError, err)
	}
	clientSecret, err := handshakeSecret.ClientHandshakeTrafficSecret(shTranscript)
	if err != nil {
		return 0, fatal(alertInternalError, err)
	}
	serverSecret, err := handshakeSecret.ServerHandshakeTrafficSecret(shTranscript)
	if err != nil {
		return 0, fatal(alertInternalError, err)
	}
	c.clientHsTrafficSecret = clientSecret
	c.serverHsTrafficSecret = serverSecret
	c.keyLog("CLIENT_HANDSHAKE_TRAFFIC_SECRET", clientSecret)
	c.keyLog("SERVER_HANDSHAKE_TRAFFIC_SECRET", serverSecret)

	// Inbound flips to handshake protection now; outbound stays where it
	// is until the client's second flight.
	if err := c.installKeys(DirectionRead, EpochHandshake, c.suite, serverSecret); err != nil {
		return 0, err
	}

	c.state = stateEncryptedExtensions
	return StepContinue, nil
}

func (c *Conn) readEncryptedExtensions() (StepResult, error) {
	raw, err := c.transport.ReadHandshakeMessage()
	if err != nil {
		return 0, err
	}
	if len(raw) == 0 || raw[0] != typeEncryptedExtensions {
		return 0, fatal(alertUnexpectedMessage, errors.New("expected EncryptedExtensions").AtError())
	}
	encryptedExtensions := new(encryptedExtensionsMsg)
	if !encryptedExtensions.unmarshal(raw) {
		return 0, fatal(alertDecodeError, errors.New("malformed EncryptedExtensions").AtError())
	}
	c.transcript.Update(raw)

	if encryptedExtensions.alpnProtocol != "" {
		offered := false
		for _, proto := range c.hello.alpnProtocols {
			if proto == encryptedExtensions.alpnProtocol {
				offered = true
			}
		}
		if !offered {
			return 0, fatal(alertUnsupportedExtension, errors.New("server selected unadvertised ALPN protocol").AtError())
		}
		c.alpnProtocol = encryptedExtensions.alpnProtocol
	}

	if encryptedExtensions.maxFragmentLength != 0 {
		if encryptedExtensions.maxFragmentLength != c.hello.maxFragmentLength {
			return 0, fatal(alertIllegalParameter, errors.New("server echoed a max_fragment_length that was not offered").AtError())
		}
		c.maxFragmentLength = encryptedExtensions.maxFragmentLength
	}

	if encryptedExtensions.earlyData {
		if c.earlyDataStatus != EarlyDataOffered {
			return 0, fatal(alertUnsupportedExtension, errors.New("server accepted early data that was not offered").AtError())
		}
		if c.alpnProtocol != c.session.ALPN {
			return 0, fatal(alertIllegalParameter, errors.New("server accepted early data with a different ALPN protocol").AtError())
		}
		if c.suite.id != c.session.CipherSuite {
			return 0, fatal(alertIllegalParameter, errors.New("server accepted early data with a different cipher suite").AtError())
		}
		c.earlyDataStatus = EarlyDataAccepted
	} else if c.earlyDataStatus == EarlyDataOffered {
		c.earlyDataStatus = EarlyDataRejected
	}

	if c.usingPSK {
		c.state = stateServerFinished
	} else {
		c.state = stateCertificateRequest
	}
	return StepContinue, nil
}

// readCertificateRequestOrCertificate handles the optional
// CertificateRequest. The message after EncryptedExtensions is either a
// CertificateRequest or the server Certificate.
func (c *Conn) readCertificateRequestOrCertificate() (StepResult, error) {
	raw, err := c.transport.ReadHandshakeMessage()
	if err != nil {
		return 0, err
	}
	if len(raw) == 0 {
		return 0, fatal(alertDecodeError, errors.New("empty handshake message").AtError())
	}

	if raw[0] == typeCertificateRequest {
		certReq := new(certificateRequestMsgTLS13)
		if !certReq.unmarshal(raw) {
			return 0, fatal(alertDecodeError, errors.New("malformed CertificateRequest").AtError())
		}
		if len(certReq.certificateRequestContext) != 0 {
			return 0, fatal(alertIllegalParameter, errors.New("CertificateRequest context must be empty during the handshake").AtError())
		}
		if len(certReq.supportedSignatureAlgorithms) == 0 {
			return 0, fatal(alertMissingExtension, errors.New("CertificateRequest has no signature_algorithms").AtError())
		}
		c.transcript.Update(raw)
		c.certReq = certReq
		c.state = stateServerCertificate
		return StepContinue, nil
	}

	return c.processCertificateMessage(raw)
}

func (c *Conn) readServerCertificate() (StepResult, error) {
	raw, err := c.transport.ReadHandshakeMessage()
	if err != nil {
		return 0, err
	}
	return c.processCertificateMessage(raw)
}

func (c *Conn) processCertificateMessage(raw []byte) (StepResult, error) {
	if len(raw) == 0 {
		return 0, fatal(alertDecodeError, errors.New("empty handshake message").AtError())
	}
	if len(raw) > maxHandshakeCertificateMsg {
		return 0, fatal(alertDecodeError, errors.New("oversized certificate message").AtError())
	}

	var certMsg *certificateMsgTLS13
	switch raw[0] {
	case typeCertificate:
		certMsg = new(certificateMsgTLS13)
		if !certMsg.unmarshal(raw) {
			return 0, fatal(alertDecodeError, errors.New("malformed Certificate").AtError())
		}
	case typeCompressedCertificate:
		compressed := new(compressedCertificateMsg)
		if !compressed.unmarshal(raw) {
			return 0, fatal(alertDecodeError, errors.New("malformed CompressedCertificate").AtError())
		}
		var err error
		certMsg, _, err = decompressCertificateMsg(compressed, c.hello.compressedCertAlgs)
		if err != nil {
			return 0, fatal(alertBadCertificate, err)
		}
	default:
		return 0, fatal(alertUnexpectedMessage, errors.New("expected a Certificate message").AtError())
	}

	// The transcript covers the message as transmitted, compressed or not.
	c.transcript.Update(raw)

	if len(certMsg.certificateRequestContext) != 0 {
		return 0, fatal(alertIllegalParameter, errors.New("server Certificate context must be empty").AtError())
	}
	if len(certMsg.certificates) == 0 {
		return 0, fatal(alertDecodeError, errors.New("server sent an empty certificate chain").AtError())
	}

	certs := make([]*x509.Certificate, len(certMsg.certificates))
	for i, entry := range certMsg.certificates {
		cert, err := x509.ParseCertificate(entry.data)
		if err != nil {
			return 0, fatal(alertBadCertificate, errors.New("failed to parse server certificate").Base(err).AtError())
		}
		certs[i] = cert
	}
	c.peerCertificates = certs
	c.ocspResponse = certMsg.certificates[0].ocspStaple
	c.scts = certMsg.certificates[0].sctList

	if err := c.verifyServerCertificate(certs); err != nil {
		return 0, err
	}

	c.state = stateServerCertificateVerify
	return StepContinue, nil
}

func (c *Conn) verifyServerCertificate(certs []*x509.Certificate) error {
	if !c.config.InsecureSkipVerify {
		opts := x509.VerifyOptions{
			Roots:         c.config.RootCAs,
			CurrentTime:   c.config.now(),
			DNSName:       c.serverName,
			Intermediates: x509.NewCertPool(),
		}
		for _, cert := range certs[1:] {
			opts.Intermediates.AddCert(cert)
		}
		chains, err := certs[0].Verify(opts)
		if err != nil {
			a := alertBadCertificate
			var unknownAuthority x509.UnknownAuthorityError
			if stderrors.As(err, &unknownAuthority) {
				a = alertUnknownCA
			}
			var expired x509.CertificateInvalidError
			if stderrors.As(err, &expired) && expired.Reason == x509.Expired {
				a = alertCertificateExpired
			}
			return fatal(a, errors.New("failed to verify server certificate").Base(err).AtError())
		}
		c.verifiedChains = chains
	}

	if c.config.VerifyPeerCertificate != nil {
		rawCerts := make([][]byte, len(certs))
		for i, cert := range certs {
			rawCerts[i] = cert.Raw
		}
		if err := c.config.VerifyPeerCertificate(rawCerts, c.verifiedChains); err != nil {
			return fatal(alertBadCertificate, errors.New("certificate rejected by VerifyPeerCertificate").Base(err).AtError())
		}
	}
	return nil
}

func (c *Conn) readServerCertificateVerify() (StepResult, error) {
	raw, err := c.transport.ReadHandshakeMessage()
	if err != nil {
		return 0, err
	}
	if len(raw) == 0 || raw[0] != typeCertificateVerify {
		return 0, fatal(alertUnexpectedMessage, errors.New("expected CertificateVerify").AtError())
	}
	certVerify := &certificateVerifyMsg{hasSignatureAlgorithm: true}
	if !certVerify.unmarshal(raw) {
		return 0, fatal(alertDecodeError, errors.New("malformed CertificateVerify").AtError())
	}

	if !isSupportedSignatureAlgorithm(certVerify.signatureAlgorithm, supportedSignatureAlgorithms) {
		return 0, fatal(alertIllegalParameter, errors.New("server used unsupported signature algorithm ", uint16(certVerify.signatureAlgorithm)).AtError())
	}
	sigType, sigHash, err := typeAndHashFromSignatureScheme(certVerify.signatureAlgorithm)
	if err != nil {
		return 0, fatal(alertInternalError, err)
	}

	// The signature covers the transcript up to, not including, this
	// message.
	cvTranscript, err := c.transcript.Clone()
	if err != nil {
		return 0, fatal(alertInternalError, err)
	}
	signed := signedMessage(sigHash, serverSignatureContext, cvTranscript)
	if err := verifyHandshakeSignature(sigType, c.peerCertificates[0].PublicKey, sigHash, signed, certVerify.signature); err != nil {
		return 0, fatal(alertDecryptError, errors.New("invalid server CertificateVerify signature").Base(err).AtError())
	}

	c.transcript.Update(raw)
	c.state = stateServerFinished
	return StepContinue, nil
}

func (c *Conn) readServerFinished() (StepResult, error) {
	raw, err := c.transport.ReadHandshakeMessage()
	if err != nil {
		return 0, err
	}
	if len(raw) == 0 || raw[0] != typeFinished {
		return 0, fatal(alertUnexpectedMessage, errors.New("expected Finished").AtError())
	}
	finished := new(finishedMsg)
	if !finished.unmarshal(raw) {
		return 0, fatal(alertDecodeError, errors.New("malformed Finished").AtError())
	}

	finTranscript, err := c.transcript.Clone()
	if err != nil {
		return 0, fatal(alertInternalError, err)
	}
	expectedMAC, err := c.suite.finishedHash(c.serverHsTrafficSecret, finTranscript)
	if err != nil {
		return 0, fatal(alertInternalError, err)
	}
	if !hmac.Equal(expectedMAC, finished.verifyData) {
		return 0, fatal(alertDecryptError, errors.New("invalid server Finished hash").AtError())
	}

	c.transcript.Update(raw)

	masterSecret, err := c.handshakeSecret.MasterSecret()
	if err != nil {
		return 0, fatal(alertInternalError, err)
	}
	c.masterSecret = masterSecret

	// Application traffic secrets cover the transcript through the server
	// Finished.
	appTranscript, err := c.transcript.Clone()
	if err != nil {
		return 0, fatal(alertInternalError, err)
	}
	clientAppSecret, err := masterSecret.ClientApplicationTrafficSecret(appTranscript)
	if err != nil {
		return 0, fatal(alertInternalError, err)
	}
	serverAppSecret, err := masterSecret.ServerApplicationTrafficSecret(appTranscript)
	if err != nil {
		return 0, fatal(alertInternalError, err)
	}
	c.clientAppTrafficSecret = clientAppSecret
	c.serverAppTrafficSecret = serverAppSecret
	c.keyLog("CLIENT_TRAFFIC_SECRET_0", clientAppSecret)
	c.keyLog("SERVER_TRAFFIC_SECRET_0", serverAppSecret)

	exporterSecret, err := masterSecret.ExporterMasterSecret(appTranscript)
	if err != nil {
		return 0, fatal(alertInternalError, err)
	}
	c.exporterSecret = exporterSecret

	// Inbound flips to application protection; the server sends nothing
	// further under handshake keys.
	if err := c.installKeys(DirectionRead, EpochApplication, c.suite, serverAppSecret); err != nil {
		return 0, err
	}

	c.state = stateEndOfEarlyData
	return StepContinue, nil
}

// sendEndOfEarlyData closes the 0-RTT stream if one was accepted and flips
// outbound protection to the handshake keys for the second flight.
func (c *Conn) sendEndOfEarlyData() (StepResult, error) {
	if err := c.writeDummyChangeCipherSpec(); err != nil {
		return 0, err
	}

	if c.earlyDataStatus == EarlyDataAccepted && !c.eoedQueued {
		eoed := new(endOfEarlyDataMsg)
		eoedBytes, err := eoed.marshal()
		if err != nil {
			return 0, fatal(alertInternalError, err)
		}
		// EndOfEarlyData travels under the 0-RTT keys.
		if err := c.transport.WriteHandshakeMessage(eoedBytes); err != nil {
			return 0, err
		}
		c.eoedQueued = true
		c.transcript.Update(eoedBytes)
	}

	if err := c.installKeys(DirectionWrite, EpochHandshake, c.suite, c.clientHsTrafficSecret); err != nil {
		return 0, err
	}
	zeroSlice(c.earlyTrafficSecret)
	c.earlyTrafficSecret = nil

	c.state = stateClientCertificate
	return StepContinue, nil
}

func (c *Conn) sendClientCertificate() (StepResult, error) {
	if c.certReq == nil {
		c.state = stateClientFinished
		return StepContinue, nil
	}

	if c.clientCert == nil {
		cert, scheme, err := c.selectClientCertificate()
		if err != nil {
			return 0, err
		}
		c.clientCert = cert
		c.clientCertScheme = scheme
	}

	certMsg := new(certificateMsgTLS13)
	certMsg.certificateRequestContext = c.certReq.certificateRequestContext
	if c.clientCert != nil {
		for _, data := range c.clientCert.Certificate {
			certMsg.certificates = append(certMsg.certificates, certificateEntry{data: data})
		}
	}
	certBytes, err := certMsg.marshal()
	if err != nil {
		return 0, fatal(alertInternalError, err)
	}
	if err := c.transport.WriteHandshakeMessage(certBytes); err != nil {
		return 0, err
	}
	c.transcript.Update(certBytes)

	if c.clientCert != nil && len(c.clientCert.Certificate) > 0 {
		c.state = stateClientCertificateVerify
	} else {
		c.state = stateClientFinished
	}
	return StepContinue, nil
}

// selectClientCertificate picks a configured chain the server's request can
// accept. A nil result means an empty Certificate message will be sent.
func (c *Conn) selectClientCertificate() (*Certificate, SignatureScheme, error) {
	for i := range c.config.Certificates {
		cert := &c.config.Certificates[i]
		scheme, err := selectSignatureScheme(cert, c.certReq.supportedSignatureAlgorithms)
		if err != nil {
			continue
		}
		return cert, scheme, nil
	}
	if c.config.ClientAuth == ClientAuthRequired {
		return nil, 0, fatal(alertHandshakeFailure, errors.New("no client certificate matches the server's request").AtError())
	}
	errors.LogInfo("no suitable client certificate, sending an empty Certificate message")
	return nil, 0, nil
}

func (c *Conn) sendClientCertificateVerify() (StepResult, error) {
	sigType, sigHash, err := typeAndHashFromSignatureScheme(c.clientCertScheme)
	if err != nil {
		return 0, fatal(alertInternalError, err)
	}
	cvTranscript, err := c.transcript.Clone()
	if err != nil {
		return 0, fatal(alertInternalError, err)
	}
	signed := signedMessage(sigHash, clientSignatureContext, cvTranscript)

	signer, ok := c.clientCert.PrivateKey.(crypto.Signer)
	if !ok {
		return 0, fatal(alertInternalError, errors.New("client certificate key does not implement crypto.Signer").AtError())
	}
	signOpts := crypto.SignerOpts(sigHash)
	if sigType == signatureRSAPSS {
		signOpts = &rsa.PSSOptions{SaltLength: rsa.PSSSaltLengthEqualsHash, Hash: sigHash}
	}
	sig, err := signer.Sign(c.config.rand(), signed, signOpts)
	if err != nil {
		return 0, fatal(alertInternalError, errors.New("failed to sign CertificateVerify").Base(err).AtError())
	}

	certVerify := &certificateVerifyMsg{
		hasSignatureAlgorithm: true,
		signatureAlgorithm:    c.clientCertScheme,
		signature:             sig,
	}
	cvBytes, err := certVerify.marshal()
	if err != nil {
		return 0, fatal(alertInternalError, err)
	}
	if err := c.transport.WriteHandshakeMessage(cvBytes); err != nil {
		return 0, err
	}
	c.transcript.Update(cvBytes)

	c.state = stateClientFinished
	return StepContinue, nil
}

func (c *Conn) sendClientFinished() (StepResult, error) {
	finTranscript, err := c.transcript.Clone()
	if err != nil {
		return 0, fatal(alertInternalError, err)
	}
	verifyData, err := c.suite.finishedHash(c.clientHsTrafficSecret, finTranscript)
	if err != nil {
		return 0, fatal(alertInternalError, err)
	}
	finished := &finishedMsg{verifyData: verifyData}
	finBytes, err := finished.marshal()
	if err != nil {
		return 0, fatal(alertInternalError, err)
	}
	if err := c.transport.WriteHandshakeMessage(finBytes); err != nil {
		return 0, err
	}
	c.transcript.Update(finBytes)

	// The resumption secret covers the transcript through the client
	// Finished.
	resTranscript, err := c.transcript.Clone()
	if err != nil {
		return 0, fatal(alertInternalError, err)
	}
	resumptionSecret, err := c.masterSecret.ResumptionMasterSecret(resTranscript)
	if err != nil {
		return 0, fatal(alertInternalError, err)
	}
	c.resumptionSecret = resumptionSecret

	if err := c.installKeys(DirectionWrite, EpochApplication, c.suite, c.clientAppTrafficSecret); err != nil {
		return 0, err
	}

	c.state = stateHandshakeWrapup
	return StepContinue, nil
}

// wrapup scrubs the secrets that have no post-handshake use and settles the
// machine in its final state.
func (c *Conn) wrapup() (StepResult, error) {
	zeroSlice(c.clientHsTrafficSecret)
	zeroSlice(c.serverHsTrafficSecret)
	c.clientHsTrafficSecret = nil
	c.serverHsTrafficSecret = nil
	c.handshakeSecret.Zeroize()
	c.handshakeSecret = nil
	c.masterSecret.Zeroize()
	c.masterSecret = nil

	errors.LogInfo("handshake complete: suite ", CipherSuiteName(c.suite.id),
		" resumed ", c.usingPSK, " early data ", c.earlyDataStatus)

	c.state = stateHandshakeOver
	return StepDone, nil
}

// readPostHandshake polls the transport for NewSessionTicket and KeyUpdate
// messages. A blocked read means there is simply nothing pending.
func (c *Conn) readPostHandshake() (StepResult, error) {
	if c.keyUpdateReplyPending {
		return c.sendKeyUpdateReply()
	}

	raw, err := c.transport.ReadHandshakeMessage()
	if err != nil {
		if stderrors.Is(err, ErrWantRead) {
			return StepDone, nil
		}
		return 0, err
	}
	if len(raw) == 0 {
		return 0, fatal(alertDecodeError, errors.New("empty handshake message").AtError())
	}

	switch raw[0] {
	case typeNewSessionTicket:
		return c.handleNewSessionTicket(raw)
	case typeKeyUpdate:
		return c.handleKeyUpdate(raw)
	default:
		return 0, fatal(alertUnexpectedMessage, errors.New("unexpected post-handshake message type ", raw[0]).AtError())
	}
}

func (c *Conn) handleNewSessionTicket(raw []byte) (StepResult, error) {
	msg := new(newSessionTicketMsgTLS13)
	if !msg.unmarshal(raw) {
		return 0, fatal(alertDecodeError, errors.New("malformed NewSessionTicket").AtError())
	}
	if msg.lifetime == 0 {
		errors.LogDebug("ignoring NewSessionTicket with zero lifetime")
		return StepContinue, nil
	}
	if lifetime := uint64(msg.lifetime); lifetime > uint64(maxSessionTicketLifetime.Seconds()) {
		return 0, fatal(alertIllegalParameter, errors.New("NewSessionTicket lifetime exceeds seven days").AtError())
	}

	psk, err := tls13.ExpandLabel(c.suite.hash, c.resumptionSecret, "resumption", msg.nonce, c.suite.hash().Size())
	if err != nil {
		return 0, fatal(alertInternalError, err)
	}

	c.latestTicket = sessionFromTicket(msg, psk, c.suite.id, c.alpnProtocol, c.peerCertificates, c.config.now())
	return StepNewSessionTicket, nil
}

func (c *Conn) handleKeyUpdate(raw []byte) (StepResult, error) {
	msg := new(keyUpdateMsg)
	if !msg.unmarshal(raw) {
		return 0, fatal(alertDecodeError, errors.New("malformed KeyUpdate").AtError())
	}

	newServerSecret, err := c.suite.nextTrafficSecret(c.serverAppTrafficSecret)
	if err != nil {
		return 0, fatal(alertInternalError, err)
	}
	zeroSlice(c.serverAppTrafficSecret)
	c.serverAppTrafficSecret = newServerSecret
	if err := c.installKeys(DirectionRead, EpochApplication, c.suite, newServerSecret); err != nil {
		return 0, err
	}

	if msg.updateRequested {
		c.keyUpdateReplyPending = true
	}
	return StepContinue, nil
}

// sendKeyUpdateReply answers a KeyUpdate with update_requested by sending
// our own KeyUpdate and rotating the outbound keys.
func (c *Conn) sendKeyUpdateReply() (StepResult, error) {
	reply := &keyUpdateMsg{updateRequested: false}
	replyBytes, err := reply.marshal()
	if err != nil {
		return 0, fatal(alertInternalError, err)
	}
	if err := c.transport.WriteHandshakeMessage(replyBytes); err != nil {
		return 0, err
	}
	newClientSecret, err := c.suite.nextTrafficSecret(c.clientAppTrafficSecret)
	if err != nil {
		return 0, fatal(alertInternalError, err)
	}
	zeroSlice(c.clientAppTrafficSecret)
	c.clientAppTrafficSecret = newClientSecret
	if err := c.installKeys(DirectionWrite, EpochApplication, c.suite, newClientSecret); err != nil {
		return 0, err
	}
	c.keyUpdateReplyPending = false
	return StepContinue, nil
}

// installKeys derives the AEAD key and IV from a traffic secret and hands
// them to the transport.
func (c *Conn) installKeys(dir Direction, epoch KeyEpoch, suite *cipherSuiteTLS13, trafficSecret []byte) error {
	key, iv, err := suite.trafficKey(trafficSecret)
	if err != nil {
		return fatal(alertInternalError, err)
	}
	defer zeroSlice(key)
	defer zeroSlice(iv)
	if err := c.transport.InstallKeys(dir, epoch, suite.id, key, iv); err != nil {
		return err
	}
	errors.LogDebug("installed ", dir, " keys for ", epoch, " epoch")
	return nil
}

func (c *Conn) keyLog(label string, secret []byte) {
	if c.config.KeyLogWriter == nil {
		return
	}
	fmt.Fprintf(c.config.KeyLogWriter, "%s %s %s\n",
		label, hex.EncodeToString(c.hello.random), hex.EncodeToString(secret))
}

// zeroizeSecrets scrubs every secret the connection still holds. Called on
// the fatal path; partial state must never leak usable key material.
func (c *Conn) zeroizeSecrets() {
	c.earlySecret.Zeroize()
	c.handshakeSecret.Zeroize()
	c.masterSecret.Zeroize()
	c.exporterSecret.Zeroize()
	c.keyShareKey.Zeroize()
	zeroSlice(c.clientHsTrafficSecret)
	zeroSlice(c.serverHsTrafficSecret)
	zeroSlice(c.clientAppTrafficSecret)
	zeroSlice(c.serverAppTrafficSecret)
	zeroSlice(c.earlyTrafficSecret)
	zeroSlice(c.resumptionSecret)
	if c.session != nil {
		// The offered session itself stays usable for other connections.
		c.session = nil
	}
}
